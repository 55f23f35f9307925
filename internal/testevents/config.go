package testevents

import "time"

// Config holds configuration for the event test.
type Config struct {
	BaseURL    string        // Base URL of the service
	Group      string        // Group the events are written to; empty uses the server default
	Users      int           // Distinct users
	NumEvents  int           // Events to generate
	Attrs      []string      // Attributes events are spread over
	TopN       int           // Rows compared per leaderboard
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Generator seed; 0 picks one from the clock
	Replays    int           // Events resent with the same request id
	OutputFile string        // Output file for events
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Event is the body posted to /events.
type Event struct {
	UserID    string  `json:"user_id"`
	AttrName  string  `json:"attr_name"`
	Score     float64 `json:"score"`
	CreatedAt string  `json:"created_at"`
	Group     string  `json:"group,omitempty"`
	RequestID string  `json:"request_id"`
}

// Entry is one leaderboard row as served by the API.
type Entry struct {
	Rank   int64   `json:"rank"`
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// AckResponse is the response to an event submission.
type AckResponse struct {
	EventID   int64 `json:"event_id"`
	Duplicate bool  `json:"duplicate"`
}

// Stats holds test statistics.
type Stats struct {
	EventsGenerated    int
	EventsSubmitted    int
	EventsSuccessful   int
	EventsDuplicate    int
	EventsFailed       int
	BoardsVerified     int
	LeaderboardEntries int
	Mismatches         int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
