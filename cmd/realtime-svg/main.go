/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/realtime-svg/realtime-svg/internal/api"
	"github.com/realtime-svg/realtime-svg/internal/bus"
	"github.com/realtime-svg/realtime-svg/internal/config"
	"github.com/realtime-svg/realtime-svg/internal/credential"
	"github.com/realtime-svg/realtime-svg/internal/session"
	"github.com/realtime-svg/realtime-svg/internal/stream"
	"github.com/realtime-svg/realtime-svg/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	// --- Logger ---
	log, syncLog, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer syncLog()

	// --- Signal context ---
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	// --- Redis store ---
	store, err := session.NewStore(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = store.Close() }()
	log.V(1).Info("redis store connected", "url", cfg.RedisURL)

	// --- Fleet credentials (first instance wins, the rest read) ---
	if err := credential.Bootstrap(ctx, store.Client(), log); err != nil {
		return fmt.Errorf("bootstrapping credentials: %w", err)
	}

	// --- Wiring ---
	eventBus := bus.New(store.Client())
	creds := credential.NewManager(store.Client())
	engine := stream.NewEngine(eventBus, stream.NewMetrics(prometheus.DefaultRegisterer), log)
	handler := api.NewHandler(store, eventBus, creds, engine, api.Config{
		RequirePassword: cfg.RequirePassword,
	}, log)
	router := api.NewRouter(handler, api.NewHTTPMetrics(prometheus.DefaultRegisterer), log)

	// --- Server ---
	// No WriteTimeout: stream responses stay open indefinitely.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "server error")
			cancel()
		}
	}()

	// --- Wait for shutdown ---
	<-ctx.Done()
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error(err, "server shutdown error")
	}
	return nil
}
