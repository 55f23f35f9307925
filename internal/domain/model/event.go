// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultGroup is the namespace used when a caller does not name one.
const DefaultGroup = "default"

// ScoreEvent is one immutable contribution to a user's history as stored in
// the ledger.
type ScoreEvent struct {
	ID        int64
	UserID    string
	AttrName  string
	CreatedAt time.Time
	Score     float64
	Extra     string // JSON document supplied by the caller
}

// Entity is the ingestion input. Zero CreatedAt means "now" and a nil Extra
// is stored as an empty JSON object.
type Entity struct {
	UserID    string
	AttrName  string
	CreatedAt time.Time
	Score     float64
	Extra     any
}

// Period names a leaderboard time window.
type Period string

// Supported periods.
const (
	PeriodAllTime Period = "alltime"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// RollingPeriods lists the periods that can be activated and reset.
var RollingPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly}

// Valid reports whether p is a recognized period name.
func (p Period) Valid() bool {
	switch p {
	case PeriodAllTime, PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// ParsePeriod converts s into a Period. An empty string means alltime.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodAllTime, nil
	}
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown period %q", s)
	}
	return p, nil
}

// ScoreType selects which aggregate a ranked set mirrors.
type ScoreType string

// Supported score types.
const (
	ScoreBest  ScoreType = "best"
	ScoreTotal ScoreType = "total"
)

// ParseScoreType converts s into a ScoreType. An empty string means best.
func ParseScoreType(s string) (ScoreType, error) {
	switch ScoreType(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScoreBest:
		return ScoreBest, nil
	case ScoreTotal:
		return ScoreTotal, nil
	}
	return "", fmt.Errorf("unknown score type %q", s)
}

// PeriodSet is an immutable set of rolling periods an event fans out to in
// addition to alltime.
type PeriodSet struct {
	daily, weekly, monthly, yearly bool
}

// NewPeriodSet builds a set from ps. Alltime and unknown values are ignored.
func NewPeriodSet(ps ...Period) PeriodSet {
	var s PeriodSet
	for _, p := range ps {
		s = s.With(p)
	}
	return s
}

// With returns a copy of s with p enabled.
func (s PeriodSet) With(p Period) PeriodSet {
	switch p {
	case PeriodDaily:
		s.daily = true
	case PeriodWeekly:
		s.weekly = true
	case PeriodMonthly:
		s.monthly = true
	case PeriodYearly:
		s.yearly = true
	}
	return s
}

// Has reports whether p receives events. Alltime always does.
func (s PeriodSet) Has(p Period) bool {
	switch p {
	case PeriodAllTime:
		return true
	case PeriodDaily:
		return s.daily
	case PeriodWeekly:
		return s.weekly
	case PeriodMonthly:
		return s.monthly
	case PeriodYearly:
		return s.yearly
	}
	return false
}

// Targets lists alltime followed by every enabled rolling period.
func (s PeriodSet) Targets() []Period {
	out := []Period{PeriodAllTime}
	for _, p := range RollingPeriods {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// FilterOptions selects the fields projected by a best-score lookup.
// Score is included unless ExcludeScore is set.
type FilterOptions struct {
	ExcludeScore bool
	Extra        bool
	CreatedAt    bool
}

// BestScore is the projection of the event holding a user's best score.
type BestScore struct {
	EventID   int64      `json:"event_id"`
	Score     *float64   `json:"score,omitempty"`
	Extra     *string    `json:"extra,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RankedMember is one row of a ranked set.
type RankedMember struct {
	Rank   int64   `json:"rank"`
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}
