// Package keyspace maps leaderboard coordinates to backing-store keys.
//
// Layout:
//
//	score_id                                   event id counter
//	score:<id>                                 ledger hash
//	<group>:hscore:<p>:<user>:<attr>           user aggregate hash
//	<group>:ld:<p>:<scoreType>:<attr>          ranked set
//
// where <p> is one of all, d, w, m, y. Every caller-supplied component is
// percent-encoded, so it never contains ':' or a glob metacharacter and the
// mapping stays injective.
package keyspace

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/ladder/internal/domain/model"
)

// Kind selects a table of the namespace.
type Kind int

// Table kinds.
const (
	Ledger Kind = iota
	Aggregate
	RankedSet
)

const (
	// CounterKey holds the atomic event id counter.
	CounterKey = "score_id"

	ledgerPrefix    = "score:"
	aggregateMarker = "hscore"
	rankedSetMarker = "ld"
	sep             = ":"
)

// Ledger hash fields.
const (
	FieldUserID    = "user_id"
	FieldAttrName  = "attr_name"
	FieldCreatedAt = "created_at"
	FieldScore     = "score"
	FieldExtra     = "extra"
)

// Aggregate hash fields.
const (
	FieldBestScore  = "best_score"
	FieldTotalScore = "total_score"
)

func periodCode(p model.Period) (string, bool) {
	switch p {
	case model.PeriodAllTime:
		return "all", true
	case model.PeriodDaily:
		return "d", true
	case model.PeriodWeekly:
		return "w", true
	case model.PeriodMonthly:
		return "m", true
	case model.PeriodYearly:
		return "y", true
	}
	return "", false
}

func escape(s string) string {
	return url.QueryEscape(s)
}

// Prefix returns the key prefix shared by every key of kind in the
// (group, period) namespace. The ledger is global and ignores both.
//
// An unrecognized period resolves to the alltime namespace unless
// excludeAllTime is set, in which case it reports false. With excludeAllTime
// the alltime period itself also reports false, so a reset can never target it.
func Prefix(group string, period model.Period, kind Kind, excludeAllTime bool) (string, bool) {
	if kind == Ledger {
		return ledgerPrefix, true
	}
	code, ok := periodCode(period)
	if excludeAllTime && (!ok || period == model.PeriodAllTime) {
		return "", false
	}
	if !ok {
		code = "all"
	}

	var marker string
	switch kind {
	case Aggregate:
		marker = aggregateMarker
	case RankedSet:
		marker = rankedSetMarker
	default:
		return "", false
	}

	var b strings.Builder
	b.WriteString(escape(group))
	b.WriteString(sep)
	b.WriteString(marker)
	b.WriteString(sep)
	b.WriteString(code)
	b.WriteString(sep)
	return b.String(), true
}

// AggregateKey is the hash holding a user's best event id and total.
func AggregateKey(group string, period model.Period, userID, attrName string) string {
	prefix, _ := Prefix(group, period, Aggregate, false)
	return prefix + escape(userID) + sep + escape(attrName)
}

// RankedSetKey is the ordered set ranking users of attrName by scoreType.
func RankedSetKey(group string, period model.Period, scoreType model.ScoreType, attrName string) string {
	prefix, _ := Prefix(group, period, RankedSet, false)
	return prefix + escape(string(scoreType)) + sep + escape(attrName)
}

// LedgerKey is the hash holding event id.
func LedgerKey(id int64) string {
	return ledgerPrefix + strconv.FormatInt(id, 10)
}

// LedgerID parses the event id back out of a stored best_score reference.
func LedgerID(ref string) (int64, error) {
	return strconv.ParseInt(ref, 10, 64)
}

// Pattern turns a prefix into a store glob matching every key under it.
func Pattern(prefix string) string {
	return prefix + "*"
}
