// Package idempotent implements C7: the idempotent execution wrapper
// that wraps a worker handler with lock-then-memoize semantics over a
// shared key/value service. This is new surface area introduced by the
// spec beyond the retrieval pack's original Python prototype — there is
// no analogue to wrap in original_source/ — so its shape is grounded on
// the teacher's own lock idioms (internal/scheduler/leader_lock.go,
// internal/dispatch/ratelimit.go's lock-guarded check-then-act) and on
// the rest of the pack's *redis.Client wiring convention
// (goadesign-goa-ai/registry/service.go).
package idempotent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/antigravity-dev/opsforge/internal/jsonutil"
	"github.com/antigravity-dev/opsforge/internal/kv"
	"github.com/antigravity-dev/opsforge/internal/store"
)

// Envelope result statuses (spec §6).
const (
	StatusSuccess = "success"
	StatusLocked  = "locked"
	StatusFailed  = "failed"
)

// lockTTL and resultTTL are fixed per spec §9's open-question decision:
// "treat as constants unless a configuration need is documented" — none
// is, so they stay compile-time constants rather than config fields.
const (
	lockTTL   = 300 * time.Second
	resultTTL = 86400 * time.Second
)

const (
	lockKeyPrefix   = "lock:"
	resultKeyPrefix = "result:"
	noEntityToken   = "none"
)

// Envelope is the result record C7 returns and persists under result_key.
type Envelope struct {
	Status         string         `json:"status"`
	TaskType       string         `json:"task_type"`
	IdempotencyKey string         `json:"idempotency_key"`
	Result         map[string]any `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Handler is a worker function: payload in, result record out.
type Handler func(ctx context.Context, payload map[string]any) (map[string]any, error)

// Wrapper executes Handlers with at-most-one-concurrent-invocation and
// exactly-once-effect semantics, keyed by the idempotency key derived
// from (intent_id, task_type, entity_id, version).
type Wrapper struct {
	kv       kv.Client
	audit    *store.Store
	tokenGen func() string
}

// New constructs a Wrapper. tokenGen defaults to uuid.NewString when nil
// (spec §4.6: "generate a fresh lock token").
func New(kvClient kv.Client, auditStore *store.Store, tokenGen func() string) *Wrapper {
	if tokenGen == nil {
		tokenGen = uuid.NewString
	}
	return &Wrapper{kv: kvClient, audit: auditStore, tokenGen: tokenGen}
}

// BuildIdempotencyKey mirrors spec §4.6's idem derivation exactly,
// including the entity_id=nil -> "none" token substitution shared with
// internal/task.BuildIdempotencyKey.
func BuildIdempotencyKey(intentID, taskType, entityID, version string) string {
	entity := entityID
	if entity == "" {
		entity = noEntityToken
	}
	key := intentID + ":" + taskType + ":" + entity
	if version != "" {
		key += ":" + version
	}
	return key
}

// Execute runs handler under lock-then-memoize semantics for the
// idempotency key derived from (intentID, taskType, entityID, version).
//
// On a cache hit or a newly-acquired-and-succeeded execution, it returns
// a populated Envelope and a nil error. On failure to acquire the lock
// (another holder is executing), it returns a "locked" Envelope and a
// nil error — the wrapper never blocks. On handler failure, it returns
// a zero Envelope and the handler's error, wrapped: the failure is
// journaled but never cached (spec §4.6 step 3), and the caller is
// expected to drive the task state machine's record_failure/
// schedule_retry in response (spec §9).
func (w *Wrapper) Execute(ctx context.Context, taskType, intentID, entityID string, payload map[string]any, version string, handler Handler) (Envelope, error) {
	idem := BuildIdempotencyKey(intentID, taskType, entityID, version)
	lockKey := lockKeyPrefix + idem
	resultKey := resultKeyPrefix + idem

	if env, ok, err := w.readCached(ctx, resultKey); err != nil {
		return Envelope{}, err
	} else if ok {
		if err := w.journal(ctx, taskType, map[string]any{"idempotency_key": idem, "cached": true}, env); err != nil {
			return Envelope{}, err
		}
		return env, nil
	}

	token := w.tokenGen()
	acquired, err := w.kv.Set(ctx, lockKey, token, true, lockTTL)
	if err != nil {
		return Envelope{}, fmt.Errorf("idempotent: acquire lock %q: %w", lockKey, err)
	}

	if !acquired {
		if env, ok, err := w.readCached(ctx, resultKey); err != nil {
			return Envelope{}, err
		} else if ok {
			if err := w.journal(ctx, taskType, map[string]any{"idempotency_key": idem, "cached": true}, env); err != nil {
				return Envelope{}, err
			}
			return env, nil
		}

		locked := Envelope{Status: StatusLocked, TaskType: taskType, IdempotencyKey: idem}
		if err := w.journal(ctx, taskType, map[string]any{"idempotency_key": idem, "locked": true}, locked); err != nil {
			return Envelope{}, err
		}
		return locked, nil
	}

	defer w.releaseLock(ctx, lockKey, token)

	result, handlerErr := handler(ctx, payload)
	if handlerErr != nil {
		failed := Envelope{Status: StatusFailed, TaskType: taskType, IdempotencyKey: idem, Error: handlerErr.Error()}
		if err := w.journal(ctx, taskType, map[string]any{"idempotency_key": idem, "error": handlerErr.Error()}, failed); err != nil {
			return Envelope{}, err
		}
		return Envelope{}, fmt.Errorf("idempotent: handler failed for %q: %w", idem, handlerErr)
	}

	success := Envelope{Status: StatusSuccess, TaskType: taskType, IdempotencyKey: idem, Result: result}
	encoded, err := jsonutil.Canonical(success)
	if err != nil {
		return Envelope{}, fmt.Errorf("idempotent: encode result %q: %w", idem, err)
	}
	if _, err := w.kv.Set(ctx, resultKey, string(encoded), false, resultTTL); err != nil {
		return Envelope{}, fmt.Errorf("idempotent: persist result %q: %w", idem, err)
	}

	// Round-trip success back through JSON so the value returned here is
	// type-identical to what readCached decodes on a later hit (spec §8
	// property 7: "byte-equal result envelope"). Without this, Result's
	// numbers are still Go ints/floats from the handler while a cached
	// read always decodes json.Number-free float64s, and the two diverge.
	if err := json.Unmarshal(encoded, &success); err != nil {
		return Envelope{}, fmt.Errorf("idempotent: normalize result %q: %w", idem, err)
	}

	if err := w.journal(ctx, taskType, map[string]any{"idempotency_key": idem}, success); err != nil {
		return Envelope{}, err
	}
	return success, nil
}

func (w *Wrapper) readCached(ctx context.Context, resultKey string) (Envelope, bool, error) {
	raw, present, err := w.kv.Get(ctx, resultKey)
	if err != nil {
		return Envelope{}, false, fmt.Errorf("idempotent: read result %q: %w", resultKey, err)
	}
	if !present {
		return Envelope{}, false, nil
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, false, fmt.Errorf("idempotent: decode cached result %q: %w", resultKey, err)
	}
	return env, true, nil
}

// releaseLock deletes lockKey only if it is still held by token, never
// a lock acquired by another holder in the meantime (spec §4.6 step 4).
func (w *Wrapper) releaseLock(ctx context.Context, lockKey, token string) {
	held, present, err := w.kv.Get(ctx, lockKey)
	if err != nil || !present || held != token {
		return
	}
	_ = w.kv.Delete(ctx, lockKey)
}

func (w *Wrapper) journal(ctx context.Context, taskType string, input map[string]any, output Envelope) error {
	if w.audit == nil {
		return nil
	}
	if err := w.audit.AppendAudit(ctx, "worker."+taskType, input, output); err != nil {
		return fmt.Errorf("idempotent: journal %q: %w", taskType, err)
	}
	return nil
}
