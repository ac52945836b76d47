// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ragprep server
//
// Long-running HTTP service around the preparation pipeline. It:
//  1. Loads configuration from CONFIG_PATH and the environment
//  2. Opens the local bleve index and, when configured, connects to Redis
//     (document queue + dedup) and PostgreSQL (processing ledger)
//  3. Serves /v1/prepare, /v1/process, /v1/search, /health and /metrics
//  4. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/ragprep/internal/api"
	"github.com/bcem/ragprep/internal/config"
	"github.com/bcem/ragprep/internal/dedup"
	"github.com/bcem/ragprep/internal/index"
	"github.com/bcem/ragprep/internal/metrics"
	"github.com/bcem/ragprep/internal/pipeline"
	"github.com/bcem/ragprep/internal/queue"
	"github.com/bcem/ragprep/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting ragprep server")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"chunk_size", cfg.Pipeline.ChunkSize,
		"overlap", cfg.Pipeline.Overlap,
		"quality_threshold", cfg.Pipeline.QualityThreshold,
		"workers", cfg.Pipeline.Workers,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor, err := pipeline.NewProcessor(cfg.Pipeline)
	if err != nil {
		slog.Error("invalid pipeline settings", "error", err)
		os.Exit(1)
	}

	checks := map[string]api.HealthCheck{}
	runnerCfg := pipeline.RunnerConfig{
		Processor: processor,
		Workers:   cfg.Pipeline.Workers,
	}

	// --- Local Index ---
	idx, err := index.Open(cfg.IndexPath)
	if err != nil {
		slog.Error("failed to open index", "path", cfg.IndexPath, "error", err)
		os.Exit(1)
	}
	defer idx.Close()
	runnerCfg.Sinks = append(runnerCfg.Sinks, idx)
	slog.Info("search index opened", "path", cfg.IndexPath)

	// --- Connect to Redis (optional) ---
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		publisher := queue.NewPublisher(rdb, cfg.DocumentsQueue)
		if err := publisher.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis", "queue", cfg.DocumentsQueue)

		runnerCfg.Sinks = append(runnerCfg.Sinks, publisher)
		runnerCfg.Dedup = dedup.NewFilter(rdb, cfg.DedupTTL)
		checks["redis"] = publisher.Ping
	}

	// --- Connect to PostgreSQL (optional) ---
	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to PostgreSQL")

		ledger, err := store.NewStore(ctx, pgPool, uuid.NewString())
		if err != nil {
			slog.Error("failed to initialise processing ledger", "error", err)
			os.Exit(1)
		}
		runnerCfg.Ledger = ledger
		checks["postgres"] = ledger.Ping
	}

	// --- Metrics ---
	m := metrics.New()
	runnerCfg.Observer = m

	handler := api.NewHandler(api.HandlerConfig{
		Processor: processor,
		Runner:    pipeline.NewRunner(runnerCfg),
		Searcher:  idx,
		Checks:    checks,
		Metrics:   m.Handler(),
	})

	ready, done, err := api.Serve(ctx, cfg.Port, handler.Routes())
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()
	<-done

	slog.Info("ragprep server stopped")
}
