package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/alfredjeanlab/foundry/internal/config"
	"github.com/alfredjeanlab/foundry/internal/events"
	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/server"
	"github.com/alfredjeanlab/foundry/internal/store/postgres"
	foundrysync "github.com/alfredjeanlab/foundry/internal/sync"
	"github.com/alfredjeanlab/foundry/internal/ui"
)

// newLogger builds the process logger: JSON lines for "json", otherwise
// tint's colored console output.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !ui.ShouldUseColor(),
	}))
}

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the HTTP and gRPC servers",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
		slog.SetDefault(logger)

		store, err := postgres.New(cfg.DatabaseURL, cfg.AutoMigrate)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (FOUNDRY_NATS_URL not set)")
		}

		foundryServer := server.NewFoundryServer(store, publisher)

		var grpcServer *grpc.Server
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				publisher.Close()
				store.Close()
				return err
			}
			grpcServer = server.NewGRPCServer(foundryServer)
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           foundryServer.NewHTTPHandler(cfg.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startSync(cfg, store, logger)

		logger.Info("foundry server started",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"resources", len(model.Catalog()),
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// startSync starts the export scheduler when an interval and at least one
// destination are configured.
func startSync(cfg *config.Config, store *postgres.PostgresStore, logger *slog.Logger) *foundrysync.Scheduler {
	if cfg.SyncInterval <= 0 {
		return nil
	}
	var dests []foundrysync.Destination

	if cfg.SyncS3Bucket != "" {
		s3Dest, err := foundrysync.NewS3Destination(
			context.Background(),
			cfg.SyncS3Bucket,
			cfg.SyncS3Key,
			cfg.SyncS3Region,
			cfg.SyncS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
		}
	}

	if cfg.SyncGitRepo != "" {
		dests = append(dests, foundrysync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
		logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
	}

	if len(dests) == 0 {
		logger.Warn("sync interval set but no destinations configured")
		return nil
	}
	scheduler := foundrysync.NewScheduler(store, model.Catalog(), dests, cfg.SyncInterval, logger)
	scheduler.Start()
	logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
	return scheduler
}
