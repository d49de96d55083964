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

	"github.com/gin-gonic/gin"
	"github.com/sentri/retail-security/internal/adapters/mailfile"
	"github.com/sentri/retail-security/internal/adapters/remote"
	"github.com/sentri/retail-security/internal/adapters/storage"
	"github.com/sentri/retail-security/internal/application"
	"github.com/sentri/retail-security/internal/config"
	"github.com/sentri/retail-security/internal/conversation"
	"github.com/sentri/retail-security/internal/domain/detection"
	"github.com/sentri/retail-security/internal/history"
	"github.com/sentri/retail-security/internal/ports"
	"github.com/sentri/retail-security/internal/transport/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck

		if err := run(cfg, logger); err != nil {
			logger.Error("sentri exited with error", zap.Error(err))
			return err
		}
		return nil
	},
}

func run(cfg config.Config, logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	if cfg.File == "" {
		logger.Warn("no config file found, using defaults and env vars")
	} else {
		logger.Info("config loaded", zap.String("file", cfg.File))
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	opts := []history.Option{history.WithLogger(logger)}

	snapshots, err := openSnapshots(cfg.Storage)
	if err != nil {
		return err
	}
	if snapshots != nil {
		defer snapshots.Close()
		opts = append(opts, history.WithSnapshotStore(snapshots))
	}

	store := history.NewStore(opts...)
	defer store.Close() // runs before snapshots.Close and flushes the last write

	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store.Load(loadCtx)
	cancel()

	logger.Info("scan history ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.Int("scans", len(store.GetAll())),
	)

	// ── Services ─────────────────────────────────────────────────────────────
	scans := application.NewScanService(detection.NewAnalyzer(), store, logger)
	if cfg.Remote.URL != "" {
		scans.SetRemoteScorer(remote.NewClient(cfg.Remote.URL, cfg.Remote.Token, cfg.Remote.Timeout), cfg.Remote.Timeout)
		logger.Info("remote scorer enabled", zap.String("url", cfg.Remote.URL))
	}
	chat := application.NewChatService(scans, conversation.NewStore(), logger)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()

	router := httpapi.NewRouter(routerCtx, httpapi.RouterConfig{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimitRPS,
		MailReader:   mailfile.NewEMLReader(),
	}, scans, chat, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sentri HTTP listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http listen: %w", err)
	}
	logger.Info("shutting down sentri...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("sentri stopped")
	return nil
}

// openSnapshots returns nil for the in-memory driver
func openSnapshots(cfg config.StorageConfig) (ports.SnapshotStore, error) {
	var dialect storage.Dialect
	switch cfg.Driver {
	case config.DriverMemory:
		return nil, nil
	case config.DriverSQLite:
		dialect = storage.DialectSQLite
	case config.DriverPostgres:
		dialect = storage.DialectPostgres
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	store, err := storage.NewSQLStore(dialect, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}
