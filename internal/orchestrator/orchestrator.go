// Package orchestrator implements C8: the façade binding a validated
// Intent to the planner's output and the worker dispatch table.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/opsforge/internal/intent"
	"github.com/antigravity-dev/opsforge/internal/planner"
	"github.com/antigravity-dev/opsforge/internal/store"
	"github.com/antigravity-dev/opsforge/internal/task"
)

// Orchestrator binds intent validation output to the planner and the
// dispatch table. Grounded on
// original_source/backend/apps/api/services/orchestrator.py's
// plan_tasks_for_intent/map_tasks_to_celery pair.
type Orchestrator struct {
	planner *planner.Planner
	audit   *store.Store
}

// New constructs an Orchestrator over an existing Planner.
func New(p *planner.Planner, auditStore *store.Store) *Orchestrator {
	return &Orchestrator{planner: p, audit: auditStore}
}

// buildPayloads merges an intent's raw_text, language, and canonicalized
// filters (only present keys survive) into one payload shared by every
// requested action, mirroring the Python prototype's _build_payloads.
func buildPayloads(in intent.Intent) map[string]map[string]any {
	base := map[string]any{
		"raw_text": in.RawText,
		"language": in.Language,
		"filters":  in.Filters.Canonical(),
	}
	payloads := make(map[string]map[string]any, len(in.Actions))
	for _, action := range in.Actions {
		copied := make(map[string]any, len(base))
		for k, v := range base {
			copied[k] = v
		}
		payloads[action] = copied
	}
	return payloads
}

// PlanTasksForIntent compiles in's actions into an ordered task plan via
// the planner, then journals "orchestrator.plan_intent" with the intent
// id and the resulting tasks. This is in addition to the planner's own
// "orchestrator.plan_tasks" journal entry for the same call (spec §4.7).
func (o *Orchestrator) PlanTasksForIntent(ctx context.Context, in intent.Intent) ([]task.Task, error) {
	payloads := buildPayloads(in)

	tasks, err := o.planner.PlanTasks(ctx, in.IntentID, in.Actions, "", payloads)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: plan tasks for intent %q: %w", in.IntentID, err)
	}

	if o.audit != nil {
		if err := o.audit.AppendAudit(ctx, "orchestrator.plan_intent",
			map[string]any{"intent_id": in.IntentID, "actions": in.Actions},
			map[string]any{"tasks": tasks},
		); err != nil {
			return nil, fmt.Errorf("orchestrator: journal plan_intent: %w", err)
		}
	}

	return tasks, nil
}

// DispatchEntry pairs a planned task with its symbolic handler id.
type DispatchEntry struct {
	TaskID    string `json:"task_id"`
	TaskType  string `json:"task_type"`
	HandlerID string `json:"handler_id"`
}

// DispatchEntriesFor maps tasks to their dispatch-table handler ids,
// mirroring map_tasks_to_celery. A task_type outside the closed action
// set is skipped rather than panicking: validation already rejected
// unknown actions upstream in C6, so this should never trigger in
// practice.
func DispatchEntriesFor(tasks []task.Task) []DispatchEntry {
	entries := make([]DispatchEntry, 0, len(tasks))
	for _, t := range tasks {
		handlerID, ok := HandlerFor(t.TaskType)
		if !ok {
			continue
		}
		entries = append(entries, DispatchEntry{TaskID: t.TaskID, TaskType: t.TaskType, HandlerID: handlerID})
	}
	return entries
}
