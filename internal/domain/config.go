// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Version       string
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	BaseURL       string `toml:"baseUrl" mapstructure:"baseUrl"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DatabasePath  string `toml:"databasePath" mapstructure:"databasePath"`
	Timezone      string `toml:"timezone" mapstructure:"timezone"`

	CORSAllowedOrigins []string `toml:"corsAllowedOrigins" mapstructure:"corsAllowedOrigins"`

	// qBittorrent connection. All three of host, username and password must be
	// set for the cleaner to initialize.
	QBittorrentHost          string `toml:"qbittorrentHost" mapstructure:"qbittorrentHost"`
	QBittorrentUsername      string `toml:"qbittorrentUsername" mapstructure:"qbittorrentUsername"`
	QBittorrentPassword      string `toml:"qbittorrentPassword" mapstructure:"qbittorrentPassword"`
	QBittorrentBasicUser     string `toml:"qbittorrentBasicUser" mapstructure:"qbittorrentBasicUser"`
	QBittorrentBasicPass     string `toml:"qbittorrentBasicPass" mapstructure:"qbittorrentBasicPass"`
	QBittorrentTLSSkipVerify bool   `toml:"qbittorrentTlsSkipVerify" mapstructure:"qbittorrentTlsSkipVerify"`
	RequestTimeout           int    `toml:"requestTimeout" mapstructure:"requestTimeout"`

	CleanSchedule string   `toml:"cleanSchedule" mapstructure:"cleanSchedule"`
	RunOnStartup  bool     `toml:"runOnStartup" mapstructure:"runOnStartup"`
	UnwantedTerms []string `toml:"unwantedTerms" mapstructure:"unwantedTerms"`
	DeleteFiles   bool     `toml:"deleteFiles" mapstructure:"deleteFiles"`

	PprofEnabled          bool   `toml:"pprofEnabled" mapstructure:"pprofEnabled"`
	PprofHost             string `toml:"pprofHost" mapstructure:"pprofHost"`
	PprofPort             int    `toml:"pprofPort" mapstructure:"pprofPort"`
	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`
}

// HasQBittorrentCredentials reports whether host, username and password are all set.
func (c *Config) HasQBittorrentCredentials() bool {
	return strings.TrimSpace(c.QBittorrentHost) != "" &&
		strings.TrimSpace(c.QBittorrentUsername) != "" &&
		c.QBittorrentPassword != ""
}

// RequestTimeoutDuration returns the per-call bound for qBittorrent requests.
func (c *Config) RequestTimeoutDuration() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if strings.TrimSpace(c.CleanSchedule) == "" {
		return errors.New("cleanSchedule is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
