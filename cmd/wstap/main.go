package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtrask/wsrelay"
	"github.com/dtrask/wsrelay/internal/config"
	"github.com/dtrask/wsrelay/internal/database"
	"github.com/dtrask/wsrelay/internal/metrics"
	"github.com/dtrask/wsrelay/internal/sink"
	"github.com/dtrask/wsrelay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/wstap.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting wstap",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"endpoint", cfg.Endpoint.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Start capture writer
	writer := sink.NewWriter(sink.Config{
		Table:         cfg.Sink.Table,
		BatchSize:     cfg.Sink.BatchSize,
		FlushInterval: cfg.Sink.FlushInterval,
		BufferSize:    cfg.Sink.BufferSize,
	}, pool, logger)
	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start capture writer", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		writer.Stop(stopCtx)
	}()

	// Connection manager for the tapped endpoint
	manager := wsrelay.NewManager(logger)
	defer manager.Close()

	mets := metrics.New("wstap", manager.Stats)

	if !manager.Connect(ctx, cfg.Endpoint.URL, cfg.Relay.Manager()) {
		logger.Error("failed to connect to endpoint", "endpoint", cfg.Endpoint.URL)
		os.Exit(1)
	}

	endpoint := cfg.Endpoint.URL
	err = manager.Subscribe(func(msg wsrelay.Message) {
		mets.ObserveMessage(msg.Structured)
		if !writer.Enqueue(sink.NewRecord(endpoint, msg.Structured, payloadBytes(msg), time.Now().UTC())) {
			mets.ObserveSinkDrop()
		}
	})
	if err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}

	// Metrics and health server
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, mets.Handler())
	mux.HandleFunc("/health", healthHandler(pool, manager, writer))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("wstap running",
		"instance_id", cfg.Instance.ID,
		"endpoint", endpoint,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
	}

	logger.Info("wstap stopped")
}

// payloadBytes re-serializes a message for storage. Structured messages
// are marshaled back to their canonical JSON form; raw messages are
// stored verbatim.
func payloadBytes(msg wsrelay.Message) []byte {
	if msg.Structured {
		data, err := json.Marshal(msg.Value)
		if err == nil {
			return data
		}
	}
	return []byte(msg.Text)
}

// healthHandler reports component status for liveness checks.
func healthHandler(pool interface {
	Ping(context.Context) error
}, manager *wsrelay.Manager, writer *sink.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		stats := manager.Stats()
		health.Components["relay"] = map[string]any{
			"connected":          stats.Connected,
			"subscribers":        stats.Subscribers,
			"backlog_depth":      stats.BacklogDepth,
			"reconnect_attempts": stats.ReconnectAttempts,
			"reconnects":         stats.Reconnects,
		}
		if !stats.Connected {
			health.Status = "degraded"
		}

		sinkStats := writer.Stats()
		health.Components["sink"] = map[string]any{
			"enqueued": sinkStats.Enqueued,
			"written":  sinkStats.Written,
			"dropped":  sinkStats.Dropped,
			"failed":   sinkStats.Failed,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}
}
