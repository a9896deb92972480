package store

import (
	"context"
	"fmt"
	"time"

	"github.com/antigravity-dev/opsforge/internal/jsonutil"
)

// AuditRecord is one row of the append-only audit log (C1).
type AuditRecord struct {
	ID            int64
	TriggerSource string
	InputJSON     string
	OutputResult  string
	CreatedAt     time.Time
}

// AppendAudit journals one state-changing action. Both payloads are
// canonicalized (lexicographically sorted keys) before insert, so equal
// logical inputs produce byte-equal rows (spec property 1). AppendAudit
// is the audit log's *only* write operation — there is no update or
// delete path, by design.
//
// Any write failure is surfaced to the caller. The audit log is a
// synchronous correctness dependency of C4/C5/C7: if it cannot record,
// the caller must not report the corresponding state change as
// successful.
func (s *Store) AppendAudit(ctx context.Context, triggerSource string, input, output any) error {
	inputJSON, err := jsonutil.Canonical(input)
	if err != nil {
		return fmt.Errorf("store: canonicalize audit input: %w", err)
	}
	outputJSON, err := jsonutil.Canonical(output)
	if err != nil {
		return fmt.Errorf("store: canonicalize audit output: %w", err)
	}

	createdAt := s.clock().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (trigger_source, input_json, output_result, created_at) VALUES (?, ?, ?, ?)`,
		triggerSource, string(inputJSON), string(outputJSON), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: append audit log: %w", err)
	}
	return nil
}

// ListRecentAudit returns up to limit audit rows in descending id order.
// This is additive operator tooling (SPEC_FULL.md supplement); it is
// not a substitute for AppendAudit, which remains C1's sole write path.
func (s *Store) ListRecentAudit(ctx context.Context, limit int) ([]AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_source, input_json, output_result, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query audit log: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.TriggerSource, &r.InputJSON, &r.OutputResult, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan audit record: %w", err)
		}
		r.CreatedAt, err = parseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("store: parse audit timestamp: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
