package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/overseerhq/overseer/internal/model"
)

// SessionStats recomputes the rollup counters from the full event history
// in a single query, so all fields reflect one consistent snapshot.
//
// Daily spend buckets by UTC calendar date: event timestamps are written
// in UTC, so the date prefix of the timestamp column and the UTC date of
// `now` agree. (Local-day bucketing would shift totals around midnight for
// operators away from UTC; UTC keeps the tile consistent with the log.)
//
// The "session" naming is historical — the counters cover the entire
// stored history, not just the live session.
func (s *Store) SessionStats(ctx context.Context, now time.Time) (model.SessionStats, error) {
	today := now.UTC().Format("2006-01-02")

	var st model.SessionStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN key_was_valid = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verdict = 'block' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN key_was_valid = 0 AND tier = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tier = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tier = 2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN tier = 3 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN substr(timestamp, 1, 10) = ? THEN amount ELSE 0 END), 0)
		FROM action_events`, today,
	).Scan(
		&st.TotalActions, &st.VerifiedCount, &st.BlockedCount, &st.UnverifiedTier1,
		&st.TierBreakdown.Tier1, &st.TierBreakdown.Tier2, &st.TierBreakdown.Tier3,
		&st.DailySpend,
	)
	if err != nil {
		if isMissingTable(err) {
			return model.SessionStats{}, nil
		}
		return model.SessionStats{}, fmt.Errorf("storage: session stats: %w", err)
	}

	st.UnverifiedCount = st.TotalActions - st.VerifiedCount
	return st, nil
}
