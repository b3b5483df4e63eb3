package trend_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overseerhq/overseer/internal/model"
	"github.com/overseerhq/overseer/internal/trend"
)

// fixedNow keeps day-bucket boundaries deterministic across test runs.
var fixedNow = time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)

func review(ts string, overall, alignment, security float64) model.ReviewRecord {
	return model.ReviewRecord{
		Timestamp:               ts,
		OverallScore:            overall,
		GoalAlignmentScore:      alignment,
		SecurityComplianceScore: security,
	}
}

// daysAgo formats a timestamp n days before fixedNow.
func daysAgo(n int) string {
	return fixedNow.AddDate(0, 0, -n).Format(time.RFC3339)
}

func TestAnalyzeEmpty(t *testing.T) {
	summary := trend.Analyze(nil, fixedNow)

	assert.NotNil(t, summary.DailyScores)
	assert.Empty(t, summary.DailyScores)
	assert.Equal(t, model.ScoreAverages{}, summary.Averages)
	assert.Equal(t, model.TrendStable, summary.TrendDirection)
	assert.Nil(t, summary.BestDay)
	assert.Nil(t, summary.WorstDay)
}

func TestAnalyzeDailyBucketsAscending(t *testing.T) {
	reviews := []model.ReviewRecord{
		review("2026-08-20T09:00:00Z", 80, 85, 90),
		review("2026-08-18T09:00:00Z", 60, 65, 70),
		review("2026-08-20T18:00:00Z", 90, 95, 70),
		review("2026-08-19T09:00:00Z", 70, 75, 80),
	}

	summary := trend.Analyze(reviews, fixedNow)
	require.Len(t, summary.DailyScores, 3)

	assert.Equal(t, "2026-08-18", summary.DailyScores[0].Date)
	assert.Equal(t, "2026-08-19", summary.DailyScores[1].Date)
	assert.Equal(t, "2026-08-20", summary.DailyScores[2].Date)

	// Two reviews on the 20th average per-metric.
	last := summary.DailyScores[2]
	assert.Equal(t, 85.0, last.Overall)
	assert.Equal(t, 90.0, last.Alignment)
	assert.Equal(t, 80.0, last.Security)
}

func TestAnalyzeAveragesWeightedByReview(t *testing.T) {
	// Three reviews on one day, one on another: the busy day dominates
	// the window average rather than counting as a single sample.
	reviews := []model.ReviewRecord{
		review("2026-08-20T09:00:00Z", 90, 90, 90),
		review("2026-08-20T10:00:00Z", 90, 90, 90),
		review("2026-08-20T11:00:00Z", 90, 90, 90),
		review("2026-08-19T09:00:00Z", 50, 50, 50),
	}

	summary := trend.Analyze(reviews, fixedNow)
	assert.Equal(t, 80.0, summary.Averages.Overall)
	assert.Equal(t, 80.0, summary.Averages.Alignment)
	assert.Equal(t, 80.0, summary.Averages.Security)
}

func TestAnalyzeRoundsToTwoDecimals(t *testing.T) {
	reviews := []model.ReviewRecord{
		review("2026-08-20T09:00:00Z", 70, 70, 70),
		review("2026-08-20T10:00:00Z", 71, 71, 71),
		review("2026-08-20T11:00:00Z", 73, 73, 73),
	}

	summary := trend.Analyze(reviews, fixedNow)
	// 214/3 = 71.333... rounds to 71.33.
	assert.Equal(t, 71.33, summary.Averages.Overall)
	require.Len(t, summary.DailyScores, 1)
	assert.Equal(t, 71.33, summary.DailyScores[0].Overall)
}

func TestDirectionImproving(t *testing.T) {
	reviews := []model.ReviewRecord{
		review(daysAgo(10), 70, 0, 0),
		review(daysAgo(9), 70, 0, 0),
		review(daysAgo(2), 80, 0, 0),
		review(daysAgo(1), 81, 0, 0),
	}
	// Recent mean 80.5 vs previous 70: +10.5 clears the threshold.
	summary := trend.Analyze(reviews, fixedNow)
	assert.Equal(t, model.TrendImproving, summary.TrendDirection)
}

func TestDirectionDeclining(t *testing.T) {
	reviews := []model.ReviewRecord{
		review(daysAgo(10), 85, 0, 0),
		review(daysAgo(2), 70, 0, 0),
	}
	summary := trend.Analyze(reviews, fixedNow)
	assert.Equal(t, model.TrendDeclining, summary.TrendDirection)
}

func TestDirectionStableWithinThreshold(t *testing.T) {
	reviews := []model.ReviewRecord{
		review(daysAgo(10), 75, 0, 0),
		review(daysAgo(2), 78, 0, 0),
	}
	// +3 is under the 5-point threshold.
	summary := trend.Analyze(reviews, fixedNow)
	assert.Equal(t, model.TrendStable, summary.TrendDirection)
}

func TestDirectionExactThresholdIsStable(t *testing.T) {
	reviews := []model.ReviewRecord{
		review(daysAgo(10), 70, 0, 0),
		review(daysAgo(2), 75, 0, 0),
	}
	// The comparison is strict: a difference of exactly 5 stays stable.
	summary := trend.Analyze(reviews, fixedNow)
	assert.Equal(t, model.TrendStable, summary.TrendDirection)
}

func TestDirectionStableWhenAWeekIsEmpty(t *testing.T) {
	t.Run("no previous week", func(t *testing.T) {
		reviews := []model.ReviewRecord{
			review(daysAgo(1), 95, 0, 0),
			review(daysAgo(2), 96, 0, 0),
		}
		summary := trend.Analyze(reviews, fixedNow)
		assert.Equal(t, model.TrendStable, summary.TrendDirection)
	})

	t.Run("no recent week", func(t *testing.T) {
		reviews := []model.ReviewRecord{
			review(daysAgo(10), 95, 0, 0),
			review(daysAgo(12), 20, 0, 0),
		}
		summary := trend.Analyze(reviews, fixedNow)
		assert.Equal(t, model.TrendStable, summary.TrendDirection)
	})
}

func TestExtremes(t *testing.T) {
	reviews := []model.ReviewRecord{
		review("2026-08-18T09:00:00Z", 60, 0, 0),
		review("2026-08-19T09:00:00Z", 95, 0, 0),
		review("2026-08-20T09:00:00Z", 72, 0, 0),
	}

	summary := trend.Analyze(reviews, fixedNow)
	require.NotNil(t, summary.BestDay)
	require.NotNil(t, summary.WorstDay)
	assert.Equal(t, "2026-08-19", summary.BestDay.Date)
	assert.Equal(t, 95.0, summary.BestDay.Overall)
	assert.Equal(t, "2026-08-18", summary.WorstDay.Date)
	assert.Equal(t, 60.0, summary.WorstDay.Overall)
}

func TestExtremesTiesFavorEarlierDate(t *testing.T) {
	reviews := []model.ReviewRecord{
		review("2026-08-18T09:00:00Z", 80, 0, 0),
		review("2026-08-19T09:00:00Z", 80, 0, 0),
		review("2026-08-20T09:00:00Z", 80, 0, 0),
	}

	summary := trend.Analyze(reviews, fixedNow)
	require.NotNil(t, summary.BestDay)
	require.NotNil(t, summary.WorstDay)
	assert.Equal(t, "2026-08-18", summary.BestDay.Date)
	assert.Equal(t, "2026-08-18", summary.WorstDay.Date)
}

func TestSingleDaySummary(t *testing.T) {
	reviews := []model.ReviewRecord{
		review("2026-08-20T09:00:00Z", 88, 91, 85),
	}

	summary := trend.Analyze(reviews, fixedNow)
	require.Len(t, summary.DailyScores, 1)
	assert.Equal(t, model.TrendStable, summary.TrendDirection)
	require.NotNil(t, summary.BestDay)
	require.NotNil(t, summary.WorstDay)
	// One day is both the best and the worst.
	assert.Equal(t, summary.BestDay.Date, summary.WorstDay.Date)
}

func TestUnparseableTimestampsSkippedForDirection(t *testing.T) {
	reviews := []model.ReviewRecord{
		review("not-a-timestamp", 10, 0, 0),
		review(daysAgo(10), 70, 0, 0),
		review(daysAgo(2), 90, 0, 0),
	}

	summary := trend.Analyze(reviews, fixedNow)
	// The malformed row still buckets by its (garbage) date prefix but
	// must not poison the week comparison.
	assert.Equal(t, model.TrendImproving, summary.TrendDirection)
}
