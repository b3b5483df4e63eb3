package model

// DefaultLogLimit and DefaultReviewLimit are the page sizes applied when a
// caller omits or garbles the limit parameter.
const (
	DefaultLogLimit    = 50
	DefaultReviewLimit = 20
)

// EventFilter is the filter specification the query engine evaluates
// against the action event log. Zero values impose no constraint; all
// supplied filters combine with logical AND.
type EventFilter struct {
	Limit  int
	Offset int

	// Verdict filters by exact match. Empty or VerdictAll means no filter.
	Verdict Verdict

	// Tier filters by exact match. Nil means no filter.
	Tier *Tier

	// Search is a case-insensitive substring matched against action_type,
	// target, or description — any one field matching is sufficient.
	Search string

	// Since is an inclusive lower bound on timestamp, compared
	// lexicographically (ISO-8601 strings order chronologically).
	Since string
}

// SessionStats is the point-in-time rollup the dashboard's stat tiles
// render. Every field is recomputed from the full stored event set on each
// call; there is no in-memory counter that could drift from the log.
type SessionStats struct {
	TotalActions    int64         `json:"totalActions"`
	VerifiedCount   int64         `json:"verifiedCount"`
	UnverifiedCount int64         `json:"unverifiedCount"`
	BlockedCount    int64         `json:"blockedCount"`
	UnverifiedTier1 int64         `json:"unverifiedTier1Count"`
	TierBreakdown   TierBreakdown `json:"tierBreakdown"`
	DailySpend      float64       `json:"dailySpend"`
}

// TierBreakdown partitions classified actions by risk tier. Unclassified
// (tier 0) actions are excluded.
type TierBreakdown struct {
	Tier1 int64 `json:"tier1"`
	Tier2 int64 `json:"tier2"`
	Tier3 int64 `json:"tier3"`
}
