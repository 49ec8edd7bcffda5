package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/gmslots/internal/core"
)

// RecordExecution appends one execution record to the log.
// Uses ON CONFLICT(id) DO NOTHING so a retried write is harmless.
func (s *Store) RecordExecution(ctx context.Context, e core.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(id, seq, slot, user_id, origin, status, code, message, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Slot,
		e.UserID,
		string(e.Origin),
		string(e.Status),
		string(e.Code),
		e.Message,
		e.StartedAt.UnixMilli(),
		e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("write execution %s: %w", e.ID, err)
	}
	return nil
}

// ExecutionFilter narrows ReadExecutions. Zero values mean "any".
type ExecutionFilter struct {
	Slot   string
	UserID string
	Limit  int
}

// ReadExecutions returns execution records, most recent last.
// Ordered by started_at ASC, seq ASC, id ASC COLLATE BINARY; with a Limit
// only the newest Limit records are returned, still oldest first.
func (s *Store) ReadExecutions(ctx context.Context, f ExecutionFilter) ([]core.Execution, error) {
	query := `
		SELECT id, seq, slot, user_id, origin, status, code, message, started_at, duration_ms
		FROM executions
		WHERE (? = '' OR slot = ?) AND (? = '' OR user_id = ?)
		ORDER BY started_at DESC, seq DESC, id COLLATE BINARY DESC
	`
	args := []any{f.Slot, f.Slot, f.UserID, f.UserID}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []core.Execution
	for rows.Next() {
		var (
			e               core.Execution
			origin, status  string
			code            string
			startedAtMillis int64
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.Slot, &e.UserID, &origin, &status, &code, &e.Message, &startedAtMillis, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.Origin = core.Origin(origin)
		e.Status = core.Status(status)
		e.Code = core.Code(code)
		e.StartedAt = time.UnixMilli(startedAtMillis).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if out == nil {
		out = []core.Execution{}
	}
	return out, nil
}

// LastSeq returns the highest recorded sequence number, or 0.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM executions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq, nil
}
