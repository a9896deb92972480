// Package taskflow implements the task lifecycle state machine (C4):
// it guards legal status transitions, applies the bounded retry policy,
// and drives dead-lettering on retry exhaustion. Every transition is
// journaled to the audit log; dead-lettered tasks are additionally
// captured in the dead-letter store.
//
// The state machine owns no task identity — every call returns a new
// Task value. Concurrent transitions on the same task id are a caller
// concern (spec §4.4): the state machine only guarantees that the edge
// it records is legal.
package taskflow

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/opsforge/internal/store"
	"github.com/antigravity-dev/opsforge/internal/task"
)

// ReasonRetryLimitExhausted is the fixed dead-letter reason recorded
// whenever ScheduleRetry exhausts a task's retry budget.
const ReasonRetryLimitExhausted = "retry_limit_exhausted"

// edge is a (from, to) pair in the allowed transition set.
type edge struct {
	from, to task.Status
}

// allowedTransitions is the fixed edge set from spec §4.4. success and
// deadletter are terminal: no edge leaves either of them.
var allowedTransitions = map[edge]bool{
	{task.StatusQueued, task.StatusRunning}:    true,
	{task.StatusRunning, task.StatusSuccess}:   true,
	{task.StatusRunning, task.StatusFailed}:    true,
	{task.StatusFailed, task.StatusRetrying}:   true,
	{task.StatusRetrying, task.StatusQueued}:   true,
	{task.StatusFailed, task.StatusDeadletter}: true,
}

// RetryPolicy bounds how many times a task may be retried before it is
// dead-lettered. Unlike the teacher's dispatch.RetryPolicy, there is no
// wall-clock backoff here: spec §1 Non-goals states the core does not
// schedule tasks in wall-clock time, so only the bounded-count shape is
// kept.
type RetryPolicy struct {
	MaxRetries int
}

// StateMachine drives task lifecycle transitions against a shared
// audit log and dead-letter store.
type StateMachine struct {
	audit      *store.Store
	deadletter *store.Store
}

// New constructs a StateMachine. auditStore and deadletterStore may be
// the same *store.Store (they share one SQL connection per spec §5).
func New(auditStore, deadletterStore *store.Store) *StateMachine {
	return &StateMachine{audit: auditStore, deadletter: deadletterStore}
}

// CanTransition reports whether the edge (from, to) is in the allowed
// transition set.
func CanTransition(from, to task.Status) bool {
	return allowedTransitions[edge{from, to}]
}

// Transition validates the (task.Status, target) edge and, on success,
// returns a new Task with the updated status and journals (before,
// after) to the audit log under "orchestrator.transition". An invalid
// edge returns an *InvalidTransitionError and emits no audit record
// (spec property 3).
func (sm *StateMachine) Transition(ctx context.Context, t task.Task, target task.Status) (task.Task, error) {
	if !CanTransition(t.Status, target) {
		return task.Task{}, &InvalidTransitionError{Current: t.Status, Target: target}
	}

	before := t
	after := t.WithStatus(target)

	if err := sm.audit.AppendAudit(ctx, "orchestrator.transition",
		map[string]any{"task": before, "target": target},
		map[string]any{"task": after},
	); err != nil {
		return task.Task{}, fmt.Errorf("taskflow: journal transition: %w", err)
	}

	return after, nil
}

// RecordFailure transitions t from running to failed.
func (sm *StateMachine) RecordFailure(ctx context.Context, t task.Task) (task.Task, error) {
	return sm.Transition(ctx, t, task.StatusFailed)
}

// Requeue transitions t from retrying back to queued.
func (sm *StateMachine) Requeue(ctx context.Context, t task.Task) (task.Task, error) {
	return sm.Transition(ctx, t, task.StatusQueued)
}

// ScheduleRetry requires t.Status == failed (else *RetryPreconditionError).
// It increments RetryCount by exactly one (spec property 4, "retry
// monotonicity"). If the pre-increment retry count is still below
// maxRetries, the new task transitions to retrying; otherwise it
// transitions to deadletter and is additionally appended to the
// dead-letter store with reason ReasonRetryLimitExhausted.
func (sm *StateMachine) ScheduleRetry(ctx context.Context, t task.Task, policy RetryPolicy) (task.Task, error) {
	if t.Status != task.StatusFailed {
		return task.Task{}, &RetryPreconditionError{Current: t.Status}
	}

	exhausted := t.RetryCount >= policy.MaxRetries
	next := t.WithRetryCount(t.RetryCount + 1)

	target := task.StatusRetrying
	if exhausted {
		target = task.StatusDeadletter
	}

	result, err := sm.Transition(ctx, next, target)
	if err != nil {
		return task.Task{}, err
	}

	if exhausted {
		if _, err := sm.deadletter.AppendDeadLetter(ctx, result, ReasonRetryLimitExhausted); err != nil {
			return task.Task{}, fmt.Errorf("taskflow: append deadletter: %w", err)
		}
	}

	return result, nil
}
