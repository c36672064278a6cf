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

// Layer → Stream sync service
//
// Entry point for the webhook service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to Redis (conversation lock) and PostgreSQL (delivery journal) when configured
//  3. Builds the Layer and Stream API clients
//  4. Serves the Layer webhook endpoint
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/layersync/internal/config"
	"github.com/bcem/layersync/internal/journal"
	"github.com/bcem/layersync/internal/layer"
	"github.com/bcem/layersync/internal/lock"
	"github.com/bcem/layersync/internal/signature"
	"github.com/bcem/layersync/internal/stream"
	"github.com/bcem/layersync/internal/syncer"
	"github.com/bcem/layersync/internal/webhook"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting layer sync service")

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"port", cfg.Port,
		"call_timeout", cfg.CallTimeout,
		"redis", cfg.RedisURL != "",
		"journal", cfg.DatabaseURL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []webhook.HealthCheck

	// --- Conversation lock (Redis when configured) ---
	var locker syncer.Locker = lock.NewLocalLocker(cfg.LockWait)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis")

		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
		checks = append(checks, webhook.HealthCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	// --- Delivery journal (PostgreSQL when configured) ---
	var deliveries syncer.Journal
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

		store, err := journal.NewStore(ctx, pgPool)
		if err != nil {
			slog.Error("failed to initialise delivery journal", "error", err)
			os.Exit(1)
		}
		deliveries = store
		checks = append(checks, webhook.HealthCheck{Name: "postgres", Ping: store.Ping})
	}

	// --- Provider clients ---
	layerClient, err := layer.NewClient(layer.Options{
		AppUUID: cfg.Layer.AppUUID,
		Token:   cfg.Layer.Token,
		BaseURL: cfg.Layer.BaseURL,
		Timeout: cfg.CallTimeout,
	})
	if err != nil {
		slog.Error("failed to create Layer client", "error", err)
		os.Exit(1)
	}

	streamClient, err := stream.NewClient(stream.Options{
		APIKey:    cfg.Stream.APIKey,
		APISecret: cfg.Stream.APISecret,
		BaseURL:   cfg.Stream.BaseURL,
		Timeout:   cfg.CallTimeout,
	})
	if err != nil {
		slog.Error("failed to create Stream client", "error", err)
		os.Exit(1)
	}

	verifier, err := signature.NewVerifier(cfg.WebhookSecret)
	if err != nil {
		slog.Error("failed to create signature verifier", "error", err)
		os.Exit(1)
	}

	// --- Sync pipeline ---
	pipeline, err := syncer.New(syncer.Config{
		Verifier:    verifier,
		Fetcher:     layerClient,
		Destination: streamClient,
		Locker:      locker,
		Journal:     deliveries,
		CallTimeout: cfg.CallTimeout,
	})
	if err != nil {
		slog.Error("failed to create syncer", "error", err)
		os.Exit(1)
	}

	handler := webhook.NewHandler(pipeline, checks...)
	ready, stopped, err := webhook.Serve(ctx, cfg.Port, handler.Routes())
	if err != nil {
		slog.Error("failed to start webhook server", "error", err)
		os.Exit(1)
	}
	<-ready
	slog.Info("layer sync service ready", "port", cfg.Port)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()
	<-stopped

	slog.Info("layer sync service stopped")
}
