package idempotent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/antigravity-dev/opsforge/internal/jsonutil"
	"github.com/antigravity-dev/opsforge/internal/kv"
	"github.com/antigravity-dev/opsforge/internal/store"
)

func newTestWrapper(t *testing.T) (*Wrapper, *kv.MemoryClient) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	memKV := kv.NewMemoryClient()
	tokens := make(chan string, 16)
	for i := 0; i < 16; i++ {
		tokens <- "token-" + string(rune('a'+i))
	}
	tokenGen := func() string { return <-tokens }
	return New(memKV, s, tokenGen), memKV
}

// S5 — idempotent caching. Two sequential calls with identical inputs
// invoke the handler once; both return byte-equal success envelopes.
func TestExecuteCachesSecondCall(t *testing.T) {
	w, _ := newTestWrapper(t)
	ctx := context.Background()
	calls := 0
	handler := func(_ context.Context, payload map[string]any) (map[string]any, error) {
		calls++
		return map[string]any{"found": 3}, nil
	}

	first, err := w.Execute(ctx, "company_search", "intent-1", "acme", map[string]any{"q": "saas"}, "", handler)
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Execute(ctx, "company_search", "intent-1", "acme", map[string]any{"q": "saas"}, "", handler)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Fatalf("expected handler invoked once, got %d", calls)
	}
	if first.Status != StatusSuccess || second.Status != StatusSuccess {
		t.Fatalf("expected both success, got %s / %s", first.Status, second.Status)
	}
	if first.IdempotencyKey != second.IdempotencyKey {
		t.Fatalf("expected stable idempotency key, got %q / %q", first.IdempotencyKey, second.IdempotencyKey)
	}

	firstJSON, err := jsonutil.Canonical(first)
	if err != nil {
		t.Fatal(err)
	}
	secondJSON, err := jsonutil.Canonical(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("expected byte-equal envelopes (spec property 7), got %s / %s", firstJSON, secondJSON)
	}
}

// S6 — locked observation. A foreign token pre-populating lock:<idem>
// causes the call to return locked without invoking the handler, and
// leaves the pre-existing lock untouched.
func TestExecuteReturnsLockedWhenForeignTokenHeld(t *testing.T) {
	w, memKV := newTestWrapper(t)
	ctx := context.Background()

	idem := BuildIdempotencyKey("intent-1", "company_search", "acme", "")
	if _, err := memKV.Set(ctx, "lock:"+idem, "foreign-token", true, 0); err != nil {
		t.Fatal(err)
	}

	called := false
	handler := func(_ context.Context, _ map[string]any) (map[string]any, error) {
		called = true
		return map[string]any{}, nil
	}

	env, err := w.Execute(ctx, "company_search", "intent-1", "acme", nil, "", handler)
	if err != nil {
		t.Fatal(err)
	}
	if env.Status != StatusLocked {
		t.Fatalf("expected locked, got %s", env.Status)
	}
	if called {
		t.Fatal("expected handler not invoked")
	}

	held, present, err := memKV.Get(ctx, "lock:"+idem)
	if err != nil {
		t.Fatal(err)
	}
	if !present || held != "foreign-token" {
		t.Fatalf("expected pre-existing lock to remain held by foreign-token, got %q present=%v", held, present)
	}
}

// Property 8 — lock mutual exclusion while no result yet exists.
func TestExecuteLockedDuringHeldLockWithoutResult(t *testing.T) {
	w, memKV := newTestWrapper(t)
	ctx := context.Background()
	idem := BuildIdempotencyKey("intent-1", "company_search", "", "")

	if _, err := memKV.Set(ctx, "lock:"+idem, "other-caller", true, 0); err != nil {
		t.Fatal(err)
	}

	env, err := w.Execute(ctx, "company_search", "intent-1", "", nil, "", func(context.Context, map[string]any) (map[string]any, error) {
		t.Fatal("handler must not be invoked while locked")
		return nil, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if env.Status != StatusLocked {
		t.Fatalf("expected locked, got %s", env.Status)
	}
}

func TestExecuteHandlerFailureIsNotCached(t *testing.T) {
	w, _ := newTestWrapper(t)
	ctx := context.Background()
	calls := 0
	handler := func(_ context.Context, _ map[string]any) (map[string]any, error) {
		calls++
		return nil, errors.New("boom")
	}

	_, err := w.Execute(ctx, "company_search", "intent-1", "", nil, "", handler)
	if err == nil {
		t.Fatal("expected handler error to be re-raised")
	}

	_, err = w.Execute(ctx, "company_search", "intent-1", "", nil, "", handler)
	if err == nil {
		t.Fatal("expected second call to re-invoke the handler, not return a cached failure")
	}
	if calls != 2 {
		t.Fatalf("expected handler invoked twice since failures are not cached, got %d", calls)
	}
}

func TestExecuteReleasesLockAfterSuccess(t *testing.T) {
	w, memKV := newTestWrapper(t)
	ctx := context.Background()
	idem := BuildIdempotencyKey("intent-1", "company_search", "", "")

	if _, err := w.Execute(ctx, "company_search", "intent-1", "", nil, "", func(context.Context, map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}); err != nil {
		t.Fatal(err)
	}

	_, present, err := memKV.Get(ctx, "lock:"+idem)
	if err != nil {
		t.Fatal(err)
	}
	if present {
		t.Fatal("expected lock released after successful execution")
	}
}

func TestBuildIdempotencyKeyVersionSuffix(t *testing.T) {
	withVersion := BuildIdempotencyKey("intent-1", "company_search", "acme", "v2")
	withoutVersion := BuildIdempotencyKey("intent-1", "company_search", "acme", "")
	if withVersion == withoutVersion {
		t.Fatal("expected version to change the idempotency domain")
	}
	if withoutVersion != "intent-1:company_search:acme" {
		t.Fatalf("unexpected key: %q", withoutVersion)
	}
}
