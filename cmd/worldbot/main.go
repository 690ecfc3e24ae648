// Command worldbot runs the ancient-world strategy game: an HTTP
// surface for player orders over a persistent, slowly ticking world.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ancientworld/internal/api"
	"ancientworld/internal/config"
	"ancientworld/internal/engine"
	"ancientworld/internal/interpreter"
	"ancientworld/internal/knowledge"
	"ancientworld/internal/llm"
	"ancientworld/internal/scheduler"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.InitClock(ctx, cfg.Game.StartYear); err != nil {
		slog.Error("failed to init world clock", "error", err)
		os.Exit(1)
	}
	year, err := st.CurrentYear(ctx)
	if err != nil {
		slog.Error("failed to read world clock", "error", err)
		os.Exit(1)
	}
	slog.Info("world opened", "path", cfg.DBPath, "year", world.FormatYear(year))

	// ── Knowledge index ───────────────────────────────────────────────
	var emb knowledge.Embedder
	if cfg.EmbedEndpoint != "" {
		emb = knowledge.NewOllamaEmbedder(cfg.EmbedEndpoint, cfg.EmbedModel)
	} else {
		emb = knowledge.NewHashEmbedder(0)
	}
	idx, err := knowledge.NewIndex(st.DB(), emb)
	if err != nil {
		slog.Error("failed to open knowledge index", "error", err)
		os.Exit(1)
	}
	slog.Info("knowledge index ready", "embedder", emb.Name())

	// ── Generation ────────────────────────────────────────────────────
	var gen llm.Generator
	if client := llm.NewClient(cfg.AnthropicKey, cfg.LLMModel); client != nil {
		gen = client
		slog.Info("generation enabled", "model", cfg.LLMModel)
	} else {
		slog.Warn("no API key set, running with templated text only")
	}

	// ── Engine, interpreter, scheduler, API ───────────────────────────
	eng := engine.New(st, idx, gen, cfg.Game)
	interp := interpreter.New(st, idx, gen, cfg.Game)

	ticker := &tickAdapter{eng: eng}
	sched := scheduler.New(ticker, cfg.TickInterval, st.LastTickAt)
	sched.OnTick(func() {
		if s := ticker.last.Load(); s != nil && !s.Replayed {
			slog.Info("year turned",
				"year", world.FormatYear(s.NextYear),
				"chronicle", s.Chronicle,
			)
		}
	})

	server := &api.Server{
		Engine:      eng,
		Interp:      interp,
		Store:       st,
		Port:        cfg.HTTPPort,
		AdminKey:    cfg.AdminKey,
		AdminIDs:    cfg.AdminIDs,
		CORSOrigins: cfg.CORSOrigins,
	}
	server.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(ctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// tickAdapter narrows the engine to the scheduler's interface and keeps
// the latest summary for the broadcast callback.
type tickAdapter struct {
	eng  *engine.Engine
	last atomic.Pointer[engine.TickSummary]
}

func (t *tickAdapter) Tick(ctx context.Context) error {
	summary, err := t.eng.Tick(ctx)
	if err != nil {
		return err
	}
	t.last.Store(summary)
	return nil
}
