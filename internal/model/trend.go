package model

// TrendDirection classifies whether recent review scores are rising,
// falling, or flat relative to the prior week.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// DailyScore is the per-calendar-date mean of the three headline review
// scores, each rounded to two decimal places.
type DailyScore struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Overall   float64 `json:"overall"`
	Alignment float64 `json:"alignment"`
	Security  float64 `json:"security"`
}

// ScoreAverages holds the window-wide means, weighted by review count
// (a day with more reviews weighs proportionally more).
type ScoreAverages struct {
	Overall   float64 `json:"overall"`
	Alignment float64 `json:"alignment"`
	Security  float64 `json:"security"`
}

// TrendSummary is the day-bucketed output of the review trend analyzer.
// BestDay and WorstDay are nil when the window holds no reviews.
type TrendSummary struct {
	DailyScores    []DailyScore   `json:"daily_scores"`
	Averages       ScoreAverages  `json:"averages"`
	TrendDirection TrendDirection `json:"trend_direction"`
	BestDay        *DailyScore    `json:"best_day"`
	WorstDay       *DailyScore    `json:"worst_day"`
}
