// Command opsforged is a thin CLI entrypoint over the task orchestration
// substrate. It stands in for the out-of-scope HTTP surface the way
// cmd/cortex/main.go stands in front of the teacher's scheduler core:
// it wires config, the shared SQLite store, Redis, and the orchestrator,
// then reads one candidate intent document (file or stdin), validates
// and plans it, and prints the resulting tasks and dispatch entries as
// JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/antigravity-dev/opsforge/internal/config"
	"github.com/antigravity-dev/opsforge/internal/intent"
	"github.com/antigravity-dev/opsforge/internal/kv"
	"github.com/antigravity-dev/opsforge/internal/orchestrator"
	"github.com/antigravity-dev/opsforge/internal/planner"
	"github.com/antigravity-dev/opsforge/internal/store"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

type planResult struct {
	Tasks    any    `json:"tasks"`
	Dispatch any    `json:"dispatch"`
	IntentID string `json:"intent_id"`
}

func main() {
	configPath := flag.String("config", "opsforge.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	intentPath := flag.String("intent", "-", "path to a candidate intent JSON document, or - for stdin")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("opsforged starting", "config", *configPath)

	cfgManager, err := loadManager(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	logger = configureLogger(cfg.General.LogLevel, *dev)
	slog.SetDefault(logger)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	_ = kv.NewRedisClient(rdb) // wired for C7 callers; this CLI only exercises C6/C5/C8

	p := planner.New(st, nil, nil)
	orch := orchestrator.New(p, st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				if err := cfgManager.Reload(*configPath); err != nil {
					logger.Error("config reload failed", "error", err)
					continue
				}
				logger.Info("config reloaded", "config", *configPath)
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info("received signal, shutting down", "signal", sig)
				cancel()
				return
			}
		}
	}()

	payload, err := readIntentPayload(*intentPath)
	if err != nil {
		logger.Error("failed to read intent payload", "path", *intentPath, "error", err)
		os.Exit(1)
	}

	validated, err := intent.Validate(payload)
	if err != nil {
		logger.Error("intent failed validation", "error", err)
		emitJSON(os.Stdout, err)
		os.Exit(1)
	}

	tasks, err := orch.PlanTasksForIntent(ctx, validated)
	if err != nil {
		logger.Error("failed to plan tasks for intent", "intent_id", validated.IntentID, "error", err)
		os.Exit(1)
	}

	result := planResult{
		Tasks:    tasks,
		Dispatch: orchestrator.DispatchEntriesFor(tasks),
		IntentID: validated.IntentID,
	}
	emitJSON(os.Stdout, result)
	logger.Info("opsforged plan complete", "intent_id", validated.IntentID, "task_count", len(tasks))
}

func loadManager(path string) (*config.RWMutexManager, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return config.NewManager(cfg), nil
}

func readIntentPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func emitJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "opsforged: encode output: %v\n", err)
	}
}
