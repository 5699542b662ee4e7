// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/config"
	"github.com/autobrr/cleango/internal/database"
	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
	"github.com/autobrr/cleango/internal/qbittorrent"
	"github.com/autobrr/cleango/internal/services/cleaner"
)

// app is what every command that touches the database or qBittorrent builds.
type app struct {
	cfg   *config.AppConfig
	loc   *time.Location
	db    *database.DB
	store *models.DeletedTorrentStore
}

func openApp(configDir string) (*app, error) {
	cfg, err := config.New(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	loc, err := cfg.Current().Location()
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &app{
		cfg:   cfg,
		loc:   loc,
		db:    db,
		store: models.NewDeletedTorrentStore(db, loc),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// newCleanerService connects to qBittorrent and builds the engine. A failed
// connection yields an uninitialized service, not an error.
func (a *app) newCleanerService(ctx context.Context) *cleaner.Service {
	cfg := a.cfg.Current()
	return cleaner.NewService(cleaner.ConfigFromDomain(cfg, a.loc), connectClient(ctx, cfg), a.store)
}

// connectClient returns a nil interface, never a typed nil, when the client
// cannot be built.
func connectClient(ctx context.Context, cfg *domain.Config) cleaner.TorrentClient {
	if !cfg.HasQBittorrentCredentials() {
		log.Warn().Msg("qBittorrent host, username and password are not all set, cleaner disabled")
		return nil
	}

	client, err := qbittorrent.NewClient(ctx, qbittorrent.ConfigFromDomain(cfg))
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to qBittorrent, cleaner disabled")
		return nil
	}
	return client
}
