package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antigravity-dev/opsforge/internal/jsonutil"
	"github.com/antigravity-dev/opsforge/internal/task"
)

// DeadLetterRecord is one row of the append-only dead-letter table (C2).
type DeadLetterRecord struct {
	ID             int64
	Task           task.Task
	Reason         string
	DeadletteredAt time.Time
}

// AppendDeadLetter durably captures a task that exhausted its retries.
// task_json is canonical JSON of t. Like the audit log, this table is
// append-only: there is no update or delete path.
func (s *Store) AppendDeadLetter(ctx context.Context, t task.Task, reason string) (DeadLetterRecord, error) {
	taskJSON, err := jsonutil.Canonical(t)
	if err != nil {
		return DeadLetterRecord{}, fmt.Errorf("store: canonicalize task: %w", err)
	}

	deadletteredAt := s.clock().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO deadletter_tasks (task_json, reason, deadlettered_at) VALUES (?, ?, ?)`,
		string(taskJSON), reason, deadletteredAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return DeadLetterRecord{}, fmt.Errorf("store: append deadletter: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return DeadLetterRecord{}, fmt.Errorf("store: read deadletter id: %w", err)
	}

	return DeadLetterRecord{
		ID:             id,
		Task:           t,
		Reason:         reason,
		DeadletteredAt: deadletteredAt,
	}, nil
}

// ListDeadLetters returns up to limit dead-letter records in descending
// id order, deserializing task_json back into a task.Task and parsing
// deadlettered_at to a timezone-aware value.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetterRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_json, reason, deadlettered_at
		 FROM deadletter_tasks ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query deadletter tasks: %w", err)
	}
	defer rows.Close()

	var records []DeadLetterRecord
	for rows.Next() {
		var id int64
		var taskJSON, reason, deadletteredAtRaw string
		if err := rows.Scan(&id, &taskJSON, &reason, &deadletteredAtRaw); err != nil {
			return nil, fmt.Errorf("store: scan deadletter record: %w", err)
		}

		var t task.Task
		if err := json.Unmarshal([]byte(taskJSON), &t); err != nil {
			return nil, fmt.Errorf("store: unmarshal deadletter task: %w", err)
		}
		deadletteredAt, err := parseTimestamp(deadletteredAtRaw)
		if err != nil {
			return nil, fmt.Errorf("store: parse deadletter timestamp: %w", err)
		}

		records = append(records, DeadLetterRecord{
			ID:             id,
			Task:           t,
			Reason:         reason,
			DeadletteredAt: deadletteredAt,
		})
	}
	return records, rows.Err()
}
