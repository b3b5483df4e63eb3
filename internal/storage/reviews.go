package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/overseerhq/overseer/internal/model"
)

// AppendReview inserts one session review, assigning its id. Highlights
// and insights are serialized to JSON columns here and decoded on every
// read path, so the rest of the system only ever sees the typed values.
func (s *Store) AppendReview(ctx context.Context, rec model.ReviewRecord) (int64, error) {
	if !s.initialized.Load() {
		return 0, ErrNotInitialized
	}

	highlights, err := json.Marshal(rec.Highlights)
	if err != nil {
		return 0, fmt.Errorf("storage: marshal highlights: %w", err)
	}
	insights := rec.Insights
	if insights == nil {
		insights = []string{}
	}
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return 0, fmt.Errorf("storage: marshal insights: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_reviews
		 (timestamp, session_id, overall_grade, overall_score, goal_alignment_score,
		  security_compliance_score, constraint_adherence_score, total_actions,
		  verified_actions, blocked_actions, highlights, insights)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.SessionID, rec.OverallGrade, rec.OverallScore,
		rec.GoalAlignmentScore, rec.SecurityComplianceScore, rec.ConstraintAdherenceScore,
		rec.TotalActions, rec.VerifiedActions, rec.BlockedActions,
		string(highlights), string(insightsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: append review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: append review id: %w", err)
	}
	return id, nil
}

// ListReviews returns one page of reviews, newest first, plus the total
// count. Missing table degrades to an empty page.
func (s *Store) ListReviews(ctx context.Context, limit, offset int) ([]model.ReviewRecord, int, error) {
	if limit <= 0 {
		limit = model.DefaultReviewLimit
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_reviews`).Scan(&total)
	if err != nil {
		if isMissingTable(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("storage: count reviews: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		reviewColumns+`
		 FROM session_reviews
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		if isMissingTable(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("storage: list reviews: %w", err)
	}
	defer rows.Close()

	reviews, err := scanReviews(rows)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// ReviewsSince returns all reviews with timestamp at or after the cutoff,
// in ascending time order — the shape the trend analyzer consumes.
// Missing table degrades to an empty slice.
func (s *Store) ReviewsSince(ctx context.Context, cutoff string) ([]model.ReviewRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		reviewColumns+`
		 FROM session_reviews
		 WHERE timestamp >= ?
		 ORDER BY timestamp ASC, id ASC`, cutoff)
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: reviews since: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

const reviewColumns = `SELECT id, timestamp, session_id, overall_grade, overall_score,
		        goal_alignment_score, security_compliance_score, constraint_adherence_score,
		        total_actions, verified_actions, blocked_actions, highlights, insights`

func scanReviews(rows *sql.Rows) ([]model.ReviewRecord, error) {
	var reviews []model.ReviewRecord
	for rows.Next() {
		var rec model.ReviewRecord
		var highlights, insights string
		if err := rows.Scan(
			&rec.ID, &rec.Timestamp, &rec.SessionID, &rec.OverallGrade, &rec.OverallScore,
			&rec.GoalAlignmentScore, &rec.SecurityComplianceScore, &rec.ConstraintAdherenceScore,
			&rec.TotalActions, &rec.VerifiedActions, &rec.BlockedActions,
			&highlights, &insights,
		); err != nil {
			return nil, fmt.Errorf("storage: scan review: %w", err)
		}
		if err := json.Unmarshal([]byte(highlights), &rec.Highlights); err != nil {
			return nil, fmt.Errorf("storage: decode highlights for review %d: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(insights), &rec.Insights); err != nil {
			return nil, fmt.Errorf("storage: decode insights for review %d: %w", rec.ID, err)
		}
		reviews = append(reviews, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate reviews: %w", err)
	}
	return reviews, nil
}
