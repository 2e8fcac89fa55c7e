package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/FairForge/webpixels/internal/admin"
	"github.com/FairForge/webpixels/internal/api"
	"github.com/FairForge/webpixels/internal/auth"
	"github.com/FairForge/webpixels/internal/bridge"
	"github.com/FairForge/webpixels/internal/metrics"
	"github.com/FairForge/webpixels/internal/platform"
	"github.com/FairForge/webpixels/internal/relay"
	"github.com/FairForge/webpixels/internal/settings"
	"github.com/FairForge/webpixels/internal/stream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, if enabled, the NATS event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Server.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := settings.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			m := metrics.New()
			registry := bridge.NewRegistry(cfg.Vendors, logger.Named("bridge"))
			rl := relay.New(store, registry, logger.Named("relay"),
				relay.WithObserver(m),
				relay.WithTTL(cfg.Ingest.SettingsCacheTTL))

			svc := admin.NewService(store, platform.NewClient(cfg.Platform, logger.Named("platform")), logger.Named("admin"))
			svc.OnChange(rl.Invalidate)

			server := api.NewServer(cfg, logger, api.Deps{
				Store:    store,
				Admin:    svc,
				Events:   rl,
				Sessions: auth.NewSessions(cfg.Auth, logger.Named("auth")),
				Metrics:  m,
				Version:  Version,
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.NATS.Enabled {
				nc, err := stream.Connect(cfg.NATS, logger.Named("nats"))
				if err != nil {
					return err
				}
				defer nc.Close()

				consumer := stream.NewConsumer(nc, cfg.NATS, rl, logger.Named("stream"))
				if err := consumer.Start(); err != nil {
					return err
				}
				defer func() { _ = consumer.Stop() }()
			}

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func migrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the settings tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			store, err := settings.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := store.CreateTables(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ tables ready")
			return nil
		},
	}
}
