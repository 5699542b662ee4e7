// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbittorrent owns the authenticated session to the qBittorrent
// WebUI and tracks whether it was reachable on the last interaction.
package qbittorrent

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
	"github.com/autobrr/cleango/pkg/redact"
)

const (
	defaultTimeout = 30 * time.Second

	// concurrent per-torrent tracker requests on WebAPI < 2.11.4
	trackerFetchConcurrency = 4
)

// includeTrackersMinVersion is the first WebAPI version that returns trackers
// inline from torrents/info (qBittorrent 5.1).
var includeTrackersMinVersion = semver.MustParse("2.11.4")

// webAPI is the subset of *qbt.Client the cleaner uses.
type webAPI interface {
	LoginCtx(ctx context.Context) error
	GetAppVersionCtx(ctx context.Context) (string, error)
	GetWebAPIVersionCtx(ctx context.Context) (string, error)
	GetTorrentsCtx(ctx context.Context, o qbt.TorrentFilterOptions) ([]qbt.Torrent, error)
	GetTorrentTrackersCtx(ctx context.Context, hash string) ([]qbt.TorrentTracker, error)
	DeleteTorrentsCtx(ctx context.Context, hashes []string, deleteFiles bool) error
}

type Config struct {
	Host          string
	Username      string
	Password      string
	BasicUser     string
	BasicPass     string
	TLSSkipVerify bool
	// Timeout bounds every remote call. Zero means 30s.
	Timeout time.Duration
}

// ConfigFromDomain maps application settings onto a client Config.
func ConfigFromDomain(cfg *domain.Config) Config {
	return Config{
		Host:          cfg.QBittorrentHost,
		Username:      cfg.QBittorrentUsername,
		Password:      cfg.QBittorrentPassword,
		BasicUser:     cfg.QBittorrentBasicUser,
		BasicPass:     cfg.QBittorrentBasicPass,
		TLSSkipVerify: cfg.QBittorrentTLSSkipVerify,
		Timeout:       cfg.RequestTimeoutDuration(),
	}
}

type Client struct {
	api     webAPI
	host    string
	timeout time.Duration

	webAPIVersion   string
	includeTrackers bool

	mu          sync.RWMutex
	isReachable bool
	lastCheck   time.Time
	appVersion  string

	probes singleflight.Group
}

// NewClient logs in once. Rejected credentials or an unreachable host
// return a domain.KindAuthentication error.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	api := qbt.NewClient(qbt.Config{
		Host:          cfg.Host,
		Username:      cfg.Username,
		Password:      cfg.Password,
		BasicUser:     cfg.BasicUser,
		BasicPass:     cfg.BasicPass,
		TLSSkipVerify: cfg.TLSSkipVerify,
		Timeout:       int(timeout / time.Second),
	})

	return newClient(ctx, cfg.Host, timeout, api)
}

func newClient(ctx context.Context, host string, timeout time.Duration, api webAPI) (*Client, error) {
	c := &Client{
		api:     api,
		host:    redact.URLString(host),
		timeout: timeout,
	}

	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := api.LoginCtx(loginCtx); err != nil {
		return nil, domain.AuthenticationError(redact.URLError(err), "login to "+c.host)
	}

	webAPIVersion, err := api.GetWebAPIVersionCtx(loginCtx)
	if err != nil {
		log.Debug().Err(redact.URLError(err)).Str("host", c.host).Msg("qbittorrent: could not read webapi version")
		webAPIVersion = ""
	}
	c.webAPIVersion = webAPIVersion
	c.includeTrackers = supportsIncludeTrackers(webAPIVersion)
	c.setReachable(true)

	log.Info().
		Str("host", c.host).
		Str("webAPIVersion", webAPIVersion).
		Bool("includeTrackers", c.includeTrackers).
		Msg("qbittorrent: connected")

	return c, nil
}

func supportsIncludeTrackers(webAPIVersion string) bool {
	if webAPIVersion == "" {
		return false
	}
	v, err := semver.NewVersion(webAPIVersion)
	if err != nil {
		return false
	}
	return !v.LessThan(includeTrackersMinVersion)
}

func (c *Client) Host() string {
	return c.host
}

func (c *Client) WebAPIVersion() string {
	return c.webAPIVersion
}

// IsReachable returns the state of the last remote interaction without a new
// round trip.
func (c *Client) IsReachable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReachable
}

func (c *Client) LastCheck() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCheck
}

// AppVersion is the qBittorrent version seen by the last successful probe.
func (c *Client) AppVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appVersion
}

func (c *Client) setReachable(ok bool) {
	c.mu.Lock()
	c.isReachable = ok
	c.lastCheck = time.Now()
	c.mu.Unlock()
}

// Probe performs one version round trip and records the result. Concurrent
// callers share a single request. It never fails; errors mean unreachable.
func (c *Client) Probe(ctx context.Context) bool {
	v, _, _ := c.probes.Do("probe", func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		version, err := c.api.GetAppVersionCtx(callCtx)
		if err != nil {
			log.Debug().Err(redact.URLError(err)).Str("host", c.host).Msg("qbittorrent: probe failed")
			c.setReachable(false)
			return false, nil
		}

		c.mu.Lock()
		c.isReachable = true
		c.lastCheck = time.Now()
		c.appVersion = version
		c.mu.Unlock()
		return true, nil
	})

	return v.(bool)
}

// ListTorrents returns every torrent with its tracker messages. Any failure
// marks the client unreachable.
func (c *Client) ListTorrents(ctx context.Context) ([]models.Torrent, error) {
	torrents, err := c.listTorrents(ctx)
	if err != nil {
		c.setReachable(false)
		return nil, domain.ConnectionError(redact.URLError(err), "list torrents")
	}

	c.setReachable(true)
	return torrents, nil
}

func (c *Client) listTorrents(ctx context.Context) ([]models.Torrent, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.api.GetTorrentsCtx(callCtx, qbt.TorrentFilterOptions{IncludeTrackers: c.includeTrackers})
	if err != nil {
		return nil, err
	}

	torrents := make([]models.Torrent, len(raw))
	for i, t := range raw {
		torrents[i] = models.Torrent{
			Hash:     t.Hash,
			Name:     t.Name,
			Size:     t.Size,
			Trackers: convertTrackers(t.Trackers),
		}
	}

	if c.includeTrackers {
		return torrents, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(trackerFetchConcurrency)
	for i := range torrents {
		g.Go(func() error {
			trackerCtx, cancel := context.WithTimeout(gctx, c.timeout)
			defer cancel()

			trackers, err := c.api.GetTorrentTrackersCtx(trackerCtx, torrents[i].Hash)
			if err != nil {
				return err
			}
			torrents[i].Trackers = convertTrackers(trackers)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return torrents, nil
}

func convertTrackers(in []qbt.TorrentTracker) []models.TrackerMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.TrackerMessage, len(in))
	for i, tr := range in {
		out[i] = models.TrackerMessage{
			URL:     tr.Url,
			Status:  int(tr.Status),
			Message: tr.Message,
		}
	}
	return out
}

// DeleteTorrents removes hashes from qBittorrent. Transport failures mark the
// client unreachable; an error answered by qBittorrent does not.
func (c *Client) DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.api.DeleteTorrentsCtx(callCtx, hashes, deleteFiles)
	switch {
	case err == nil:
		c.setReachable(true)
		return nil
	case isTransportError(err):
		c.setReachable(false)
	default:
		c.setReachable(true)
	}

	return redact.URLError(err)
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
