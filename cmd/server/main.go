package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shiv248/coedit/pkg/database"
	"github.com/shiv248/coedit/pkg/logger"
	"github.com/shiv248/coedit/pkg/server"
)

// Config holds the flags a running coedit server needs. Every flag has
// an env-var default so the binary behaves the same under a process
// manager or a plain shell invocation, mirroring the teacher's
// getEnv/getEnvInt convention but surfaced through cobra instead.
type Config struct {
	Port                string
	ExpiryDays          int
	SQLiteURI           string
	CleanupInterval     time.Duration
	MaxDocumentSizeKB   int
	WSReadTimeout       time.Duration
	WSWriteTimeout      time.Duration
	BroadcastBufferSize int
}

func main() {
	cfg := Config{}

	root := &cobra.Command{
		Use:   "coedit-server",
		Short: "Hosts collaborative documents over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.Port, "port", envOr("PORT", "3030"), "port to listen on")
	flags.IntVar(&cfg.ExpiryDays, "expiry-days", envOrInt("EXPIRY_DAYS", 7), "days a document may sit idle before it is discarded")
	flags.StringVar(&cfg.SQLiteURI, "sqlite-uri", os.Getenv("SQLITE_URI"), "SQLite DSN for persistence; empty disables persistence")
	flags.DurationVar(&cfg.CleanupInterval, "cleanup-interval", time.Duration(envOrInt("CLEANUP_INTERVAL_HOURS", 1))*time.Hour, "how often the idle-document sweep runs")
	flags.IntVar(&cfg.MaxDocumentSizeKB, "max-document-size-kb", envOrInt("MAX_DOCUMENT_SIZE_KB", 256), "maximum document size in KiB")
	flags.DurationVar(&cfg.WSReadTimeout, "ws-read-timeout", time.Duration(envOrInt("WS_READ_TIMEOUT_MINUTES", 30))*time.Minute, "idle read timeout per WebSocket message")
	flags.DurationVar(&cfg.WSWriteTimeout, "ws-write-timeout", time.Duration(envOrInt("WS_WRITE_TIMEOUT_SECONDS", 10))*time.Second, "write timeout per WebSocket message")
	flags.IntVar(&cfg.BroadcastBufferSize, "broadcast-buffer-size", envOrInt("BROADCAST_BUFFER_SIZE", 16), "per-connection outbound channel capacity")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(cfg Config) error {
	logger.Init()
	logger.Info("starting coedit server")
	logger.Info("port: %s", cfg.Port)
	logger.Info("document expiry: %d days", cfg.ExpiryDays)

	var db *database.Database
	if cfg.SQLiteURI != "" {
		logger.Info("database: %s", cfg.SQLiteURI)
		var err error
		db, err = database.New(cfg.SQLiteURI)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.Close()
	} else {
		logger.Info("database: disabled (in-memory only)")
	}

	host := server.NewHost(db, server.HostConfig{
		MaxDocumentSize:     cfg.MaxDocumentSizeKB * 1024,
		BroadcastBufferSize: cfg.BroadcastBufferSize,
		WSReadTimeout:       cfg.WSReadTimeout,
		WSWriteTimeout:      cfg.WSWriteTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.StartCleaner(ctx, time.Duration(cfg.ExpiryDays)*24*time.Hour, cfg.CleanupInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
		host.Shutdown(ctx)
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	return host.ListenAndServe(addr)
}

func envOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envOrInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return defaultValue
}
