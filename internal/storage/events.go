package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/overseerhq/overseer/internal/model"
)

// AppendEvent inserts one ActionEvent, assigning id and created_at.
// Exactly one durable row results; no existing row is touched.
func (s *Store) AppendEvent(ctx context.Context, ev model.ActionEvent) (int64, error) {
	if !s.initialized.Load() {
		return 0, ErrNotInitialized
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO action_events
		 (timestamp, session_id, action_type, target, amount, description,
		  verdict, reason, key_was_valid, tier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Timestamp, ev.SessionID, string(ev.ActionType), ev.Target, ev.Amount,
		ev.Description, string(ev.Verdict), ev.Reason, boolToInt(ev.KeyWasValid),
		int(ev.Tier), nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: append event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: append event id: %w", err)
	}
	return id, nil
}

// predicate is one AND-composed filter condition: a column expression with
// placeholders plus its bind arguments. Building filters this way keeps
// user input out of the SQL text entirely.
type predicate struct {
	expr string
	args []any
}

// eventPredicates translates an EventFilter into its predicate list.
// Omitted filter fields contribute nothing.
func eventPredicates(f model.EventFilter) []predicate {
	var preds []predicate

	if f.Verdict != "" && f.Verdict != model.VerdictAll {
		preds = append(preds, predicate{"verdict = ?", []any{string(f.Verdict)}})
	}
	if f.Tier != nil {
		preds = append(preds, predicate{"tier = ?", []any{int(*f.Tier)}})
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		preds = append(preds, predicate{
			`(LOWER(action_type) LIKE ? ESCAPE '\' OR LOWER(target) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
			[]any{pattern, pattern, pattern},
		})
	}
	if f.Since != "" {
		// ISO-8601 strings order chronologically, so a plain string
		// comparison implements the inclusive lower bound.
		preds = append(preds, predicate{"timestamp >= ?", []any{f.Since}})
	}
	return preds
}

// whereClause joins predicates with AND. Empty input yields an empty
// clause and nil args.
func whereClause(preds []predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	exprs := make([]string, len(preds))
	var args []any
	for i, p := range preds {
		exprs[i] = p.expr
		args = append(args, p.args...)
	}
	return " WHERE " + strings.Join(exprs, " AND "), args
}

// escapeLike neutralizes LIKE wildcards in a user-supplied search term so
// the match is a literal substring test.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// QueryEvents returns one page of events matching the filter, newest first
// (timestamp descending, insertion order breaking ties), plus the total
// match count before pagination. A store that has never been initialized
// yields an empty page rather than an error.
func (s *Store) QueryEvents(ctx context.Context, f model.EventFilter) ([]model.ActionEvent, int, error) {
	if f.Limit <= 0 {
		f.Limit = model.DefaultLogLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where, args := whereClause(eventPredicates(f))

	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM action_events`+where, args...).Scan(&total)
	if err != nil {
		if isMissingTable(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("storage: count events: %w", err)
	}

	pageArgs := append(append([]any{}, args...), f.Limit, f.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, session_id, action_type, target, amount, description,
		        verdict, reason, key_was_valid, tier, created_at
		 FROM action_events`+where+`
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		if isMissingTable(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("storage: query events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// GetEvent returns a single event by id.
func (s *Store) GetEvent(ctx context.Context, id int64) (model.ActionEvent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, session_id, action_type, target, amount, description,
		        verdict, reason, key_was_valid, tier, created_at
		 FROM action_events WHERE id = ?`, id)

	ev, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows || isMissingTable(err) {
			return model.ActionEvent{}, ErrNotFound
		}
		return model.ActionEvent{}, fmt.Errorf("storage: get event: %w", err)
	}
	return ev, nil
}

// CleanupEvents deletes every event strictly older than now minus
// retentionDays and returns the count removed. The cutoff is computed once
// up front, so rows appended while the sweep runs are never observed:
// their timestamps sort at or after the cutoff.
func (s *Store) CleanupEvents(ctx context.Context, retentionDays int) (int64, error) {
	if !s.initialized.Load() {
		return 0, ErrNotInitialized
	}
	if retentionDays <= 0 {
		return 0, fmt.Errorf("storage: retention days must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(timestampLayout)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM action_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage: cleanup events: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: cleanup events count: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.ActionEvent, error) {
	var e model.ActionEvent
	var keyValid, tier int
	var actionType, verdict string
	err := row.Scan(
		&e.ID, &e.Timestamp, &e.SessionID, &actionType, &e.Target, &e.Amount,
		&e.Description, &verdict, &e.Reason, &keyValid, &tier, &e.CreatedAt,
	)
	if err != nil {
		return model.ActionEvent{}, err
	}
	e.ActionType = model.ActionType(actionType)
	e.Verdict = model.Verdict(verdict)
	e.KeyWasValid = keyValid != 0
	e.Tier = model.Tier(tier)
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]model.ActionEvent, error) {
	var events []model.ActionEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate events: %w", err)
	}
	return events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
