// Package trend turns a time-bounded slice of session reviews into a
// day-bucketed score summary: per-day means, window averages, a coarse
// direction classification, and best/worst-day extremes.
//
// Analyze is a pure function over its inputs. The storage layer selects
// the review window; nothing here touches the database or the clock
// beyond the caller-supplied reference time.
package trend

import (
	"math"
	"sort"
	"time"

	"github.com/overseerhq/overseer/internal/model"
)

// directionThreshold is the raw-score-point difference between the recent
// and previous week averages needed to call a trend anything but stable.
const directionThreshold = 5.0

// Analyze computes the trend summary for reviews already filtered to the
// caller's window. An empty slice yields the documented empty state:
// zeroed averages, "stable", and nil extremes.
func Analyze(reviews []model.ReviewRecord, now time.Time) model.TrendSummary {
	summary := model.TrendSummary{
		DailyScores:    []model.DailyScore{},
		TrendDirection: model.TrendStable,
	}
	if len(reviews) == 0 {
		return summary
	}

	summary.DailyScores = dailyScores(reviews)
	summary.Averages = windowAverages(reviews)
	summary.TrendDirection = direction(reviews, now)
	summary.BestDay, summary.WorstDay = extremes(summary.DailyScores)
	return summary
}

type dayBucket struct {
	overall   float64
	alignment float64
	security  float64
	count     int
}

// dailyScores groups reviews by the date portion of their timestamps and
// emits per-day arithmetic means in ascending date order.
func dailyScores(reviews []model.ReviewRecord) []model.DailyScore {
	buckets := make(map[string]*dayBucket)
	for _, r := range reviews {
		d := datePart(r.Timestamp)
		b, ok := buckets[d]
		if !ok {
			b = &dayBucket{}
			buckets[d] = b
		}
		b.overall += r.OverallScore
		b.alignment += r.GoalAlignmentScore
		b.security += r.SecurityComplianceScore
		b.count++
	}

	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	daily := make([]model.DailyScore, 0, len(dates))
	for _, d := range dates {
		b := buckets[d]
		n := float64(b.count)
		daily = append(daily, model.DailyScore{
			Date:      d,
			Overall:   round2(b.overall / n),
			Alignment: round2(b.alignment / n),
			Security:  round2(b.security / n),
		})
	}
	return daily
}

// windowAverages means each score across all selected reviews, so a day
// with more reviews weighs proportionally more than a sparse one.
func windowAverages(reviews []model.ReviewRecord) model.ScoreAverages {
	var overall, alignment, security float64
	for _, r := range reviews {
		overall += r.OverallScore
		alignment += r.GoalAlignmentScore
		security += r.SecurityComplianceScore
	}
	n := float64(len(reviews))
	return model.ScoreAverages{
		Overall:   round2(overall / n),
		Alignment: round2(alignment / n),
		Security:  round2(security / n),
	}
}

// direction compares the mean overall score of the last 7 days against the
// 7 days before that. Either group being empty means there is not enough
// signal to call a direction, so the result is stable.
func direction(reviews []model.ReviewRecord, now time.Time) model.TrendDirection {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var recentSum, previousSum float64
	var recentN, previousN int
	for _, r := range reviews {
		ts, ok := parseTimestamp(r.Timestamp)
		if !ok {
			continue
		}
		switch {
		case !ts.Before(weekAgo):
			recentSum += r.OverallScore
			recentN++
		case !ts.Before(twoWeeksAgo):
			previousSum += r.OverallScore
			previousN++
		}
	}

	if recentN == 0 || previousN == 0 {
		return model.TrendStable
	}

	diff := recentSum/float64(recentN) - previousSum/float64(previousN)
	switch {
	case diff > directionThreshold:
		return model.TrendImproving
	case diff < -directionThreshold:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

// extremes scans the ascending-date daily records tracking max and min
// overall scores. Strict comparisons mean the first day encountered wins
// ties in both directions.
func extremes(daily []model.DailyScore) (best, worst *model.DailyScore) {
	for i := range daily {
		d := daily[i]
		if best == nil || d.Overall > best.Overall {
			best = &daily[i]
		}
		if worst == nil || d.Overall < worst.Overall {
			worst = &daily[i]
		}
	}
	return best, worst
}

// datePart extracts the YYYY-MM-DD prefix of an ISO-8601 timestamp.
func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

// parseTimestamp accepts RFC3339 (with or without fractional seconds) and
// bare dates, the formats upstream producers actually write.
func parseTimestamp(ts string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", ts); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
