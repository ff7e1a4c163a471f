// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/canoe-go/internal/decoder/translate"
	"github.com/AleutianAI/canoe-go/internal/orchestrate"
	"github.com/AleutianAI/canoe-go/internal/service"
	"github.com/AleutianAI/canoe-go/internal/telemetry"
)

var (
	servePort    int
	serveNATSURL string
	servePoolN   int
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decoder over REST, WebSocket, and (optionally) a NATS sentence-orchestration pool",
		RunE:  runServe,
	}
	cmd.Flags().IntVar(&servePort, "port", 8080, "HTTP port to listen on")
	cmd.Flags().StringVar(&serveNATSURL, "nats-url", "", "NATS server URL for sentence orchestration (disabled if empty)")
	cmd.Flags().IntVar(&servePoolN, "pool-concurrency", 4, "number of concurrent sentence-decode workers when --nats-url is set")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if tablePath == "" {
		return fmt.Errorf("canoe serve: --table is required")
	}
	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}
	table, voc, err := loadPhraseTable(tablePath, 0)
	if err != nil {
		return err
	}
	decoder := translate.New(cfg, defaultFeatures(), voc)

	shutdownTelemetry, err := telemetry.Setup(context.Background(), "canoe-serve")
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without tracing/metrics", slog.String("error", err.Error()))
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	handlers := service.NewHandlers(table, decoder, slog.Default())
	router := service.NewRouter(handlers)
	router.GET("/metrics", gin.WrapH(telemetry.Handler()))

	stopConfigWatch, err := watchConfigReload()
	if err != nil {
		slog.Warn("config file watcher unavailable", slog.String("error", err.Error()))
	} else {
		defer stopConfigWatch()
	}

	var natsConn *nats.Conn
	var pool *orchestrate.Pool
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	if serveNATSURL != "" {
		natsConn, err = nats.Connect(serveNATSURL)
		if err != nil {
			return fmt.Errorf("canoe serve: connecting to NATS at %s: %w", serveNATSURL, err)
		}
		defer natsConn.Close()
		pool = orchestrate.NewPool(natsConn, table, decoder, servePoolN, slog.Default())
		go func() {
			if err := pool.Run(poolCtx); err != nil && poolCtx.Err() == nil {
				slog.Error("sentence-orchestration pool stopped", slog.String("error", err.Error()))
			}
		}()
		slog.Info("sentence-orchestration pool started", slog.String("nats_url", serveNATSURL), slog.Int("concurrency", servePoolN))
	}

	mcpServer := service.NewMCPServer(handlers)
	_ = mcpServer // built but not served: the HTTP server below carries only the REST, WebSocket and metrics routes

	srv := &http.Server{Addr: fmt.Sprintf(":%d", servePort), Handler: router}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down canoe server")
		cancelPool()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("canoe server listening", slog.Int("port", servePort))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("canoe serve: %w", err)
	}
	return nil
}

// watchConfigReload watches configPath (if set) and logs every write to
// it. It reloads nothing: the running Decoder keeps the configuration,
// log level and weights it was built with, so a changed file takes
// effect only when the server is started again.
func watchConfigReload() (stop func(), err error) {
	if configPath == "" {
		return func() {}, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					slog.Info("configuration file changed, takes effect on the next server start", slog.String("path", configPath))
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", slog.String("error", werr.Error()))
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		watcher.Close()
	}, nil
}
