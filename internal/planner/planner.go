// Package planner implements C5: compiling an intent into a
// deterministic, ordered plan of task.Task records.
package planner

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/opsforge/internal/clock"
	"github.com/antigravity-dev/opsforge/internal/idgen"
	"github.com/antigravity-dev/opsforge/internal/store"
	"github.com/antigravity-dev/opsforge/internal/task"
)

// Planner produces ordered task plans from an intent id and a list of
// task types. Id generation and clock are injectable seams (spec §9)
// so tests can assert byte-identical, deterministic plans.
type Planner struct {
	idGen idgen.Generator
	clk   clock.Source
	audit *store.Store
}

// New constructs a Planner. auditStore may be nil only in tests that do
// not care about journaling; production callers must supply one, since
// a non-empty plan is always journaled (spec §4.3).
func New(auditStore *store.Store, idGen idgen.Generator, clk clock.Source) *Planner {
	if idGen == nil {
		idGen = idgen.UUID
	}
	if clk == nil {
		clk = clock.Now
	}
	return &Planner{idGen: idGen, clk: clk, audit: auditStore}
}

// PlanTasks builds one task.Task per entry of taskTypes, in order. All
// tasks in one plan share a single clock reading. payloads maps a task
// type to the payload to forward to that task; a missing entry yields
// an empty payload. A non-empty result is journaled to the audit log
// under "orchestrator.plan_tasks" (spec property 1: plan determinism —
// same id generator, clock, intent id, task types, entity id and
// payloads always produce byte-identical serialized output).
func (p *Planner) PlanTasks(ctx context.Context, intentID string, taskTypes []string, entityID string, payloads map[string]map[string]any) ([]task.Task, error) {
	createdAt := p.clk()
	tasks := make([]task.Task, 0, len(taskTypes))

	for _, taskType := range taskTypes {
		payload := copyPayload(payloads[taskType])
		tasks = append(tasks, task.Task{
			TaskID:         p.idGen(taskType),
			IntentID:       intentID,
			TaskType:       taskType,
			Status:         task.StatusQueued,
			RetryCount:     0,
			IdempotencyKey: task.BuildIdempotencyKey(intentID, taskType, entityID),
			Payload:        payload,
			CreatedAt:      createdAt,
		})
	}

	if len(tasks) > 0 && p.audit != nil {
		input := map[string]any{
			"intent_id":  intentID,
			"task_types": taskTypes,
			"entity_id":  entityID,
			"payloads":   payloads,
		}
		output := map[string]any{"tasks": tasks}
		if err := p.audit.AppendAudit(ctx, "orchestrator.plan_tasks", input, output); err != nil {
			return nil, fmt.Errorf("planner: journal plan_tasks: %w", err)
		}
	}

	return tasks, nil
}

func copyPayload(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
