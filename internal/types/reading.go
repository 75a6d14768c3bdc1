package types

// Cache-only payloads for the reading history side effects of a completed
// pipeline run. Both live under TTL-scoped namespaces, never in Postgres.

// RecentReading is one completed draw, appended most-recent-first to a
// per-subject list capped at RecentReadingsCap.
type RecentReading struct {
	Cards     []DrawnCard `json:"cards"`
	Spread    *Spread     `json:"spread,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const RecentReadingsCap = 10

// UserPatterns accumulates frequency counters across completed readings.
type UserPatterns struct {
	CommonCards      map[string]int `json:"common_cards"`
	PreferredSpreads map[string]int `json:"preferred_spreads"`
	Themes           map[string]int `json:"themes"`
}

func NewUserPatterns() *UserPatterns {
	return &UserPatterns{
		CommonCards:      map[string]int{},
		PreferredSpreads: map[string]int{},
		Themes:           map[string]int{},
	}
}
