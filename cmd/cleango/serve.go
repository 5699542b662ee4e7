// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/cleango/internal/api"
	"github.com/autobrr/cleango/internal/buildinfo"
	"github.com/autobrr/cleango/internal/config"
	"github.com/autobrr/cleango/internal/metrics"
	"github.com/autobrr/cleango/internal/services/cleaner"
)

func RunServeCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the clean scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, configDir)
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Config directory or config.toml path (default is the platform config directory)")
	return cmd
}

func runServe(ctx context.Context, configDir string) error {
	logManager := config.NewLogManager()
	logManager.Initialize()
	defer func() { _ = logManager.Close() }()

	a, err := openApp(configDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := a.cfg.ApplyLogConfig(logManager); err != nil {
		return err
	}
	a.cfg.Watch()

	cfg := a.cfg.Current()

	log.Info().
		Str("version", buildinfo.Version).
		Str("config", a.cfg.ConfigPath()).
		Str("database", a.cfg.GetDatabasePath()).
		Str("timezone", a.loc.String()).
		Msg("Starting cleango")
	log.Debug().Interface("config", cfg.Redacted()).Msg("Loaded configuration")

	svc := a.newCleanerService(ctx)

	scheduler, err := cleaner.NewScheduler(svc)
	if err != nil {
		return err
	}

	api.StartPprofServer(cfg)

	g, ctx := errgroup.WithContext(ctx)

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := api.NewServer(&api.Dependencies{
		Config:  a.cfg,
		Cleaner: svc,
		History: a.store,
		DB:      a.db,
	})
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})

	if cfg.MetricsEnabled {
		metricsServer := metrics.NewMetricsServer(metrics.NewMetricsManager(svc, a.db), metrics.ServerOptions{
			Host:           cfg.MetricsHost,
			Port:           cfg.MetricsPort,
			BasicAuthUsers: cfg.MetricsBasicAuthUsers,
		})
		g.Go(func() error {
			return metricsServer.ListenAndServe(ctx)
		})
	}

	err = g.Wait()
	log.Info().Msg("Shutting down")
	return err
}
