// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "0.0.0.0"
host = "0.0.0.0"

# Port
# Default: 5000
port = 5000

# Base URL
# Set custom baseUrl eg /cleango/ to serve behind a reverse proxy subpath.
# Default: "/"
#baseUrl = "/"

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/cleango.log"

# Log rotation
# Maximum log file size in megabytes before rotation, and how many rotated files to keep
#logMaxSize = 50
#logMaxBackups = 3

# Database path
# Default: cleango.db next to this file
#databasePath = "/var/db/cleango/cleango.db"

# Timezone used for status timestamps and deletion dates, eg "America/New_York"
# Default: local time
#timezone = ""

# qBittorrent WebUI
# All three of host, username and password are required for the cleaner to start.
# QBITTORRENT_HOST, QBITTORRENT_USERNAME and QBITTORRENT_PASSWORD are honoured as well.
#qbittorrentHost = "http://localhost:8080"
#qbittorrentUsername = "admin"
#qbittorrentPassword = ""

# HTTP basic auth in front of the WebUI
#qbittorrentBasicUser = ""
#qbittorrentBasicPass = ""
#qbittorrentTlsSkipVerify = false

# Timeout in seconds for every qBittorrent request
# Default: 30
#requestTimeout = 30

# Cleaning schedule, cron expression or descriptor
# Default: "@every 1h"
cleanSchedule = "@every 1h"

# Run a pass immediately at startup
# Default: true
#runOnStartup = true

# Tracker message terms that mark a torrent for removal, matched case-insensitively
# Default: ["unregistered", "trump"]
#unwantedTerms = ["unregistered", "trump"]

# Delete downloaded files together with the torrent
# Default: true
#deleteFiles = true

# Origins allowed to read the JSON API cross-origin
# Default: [] (same-origin only)
#corsAllowedOrigins = []

# Profiling server
#pprofEnabled = false
#pprofHost = "127.0.0.1"
#pprofPort = 6060

# Prometheus metrics server
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074
# Comma separated user:password pairs, empty disables auth
#metricsBasicAuthUsers = ""
`

// WriteDefaultConfig writes the commented default config to path, creating
// parent directories. It never overwrites an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(defaultConfigTemplate); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return f.Sync()
}
