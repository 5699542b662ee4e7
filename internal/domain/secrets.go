// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// RedactedStr replaces secret values in logs and command output.
const RedactedStr = "<redacted>"

// RedactString hides s unless it is empty
func RedactString(s string) string {
	if len(s) == 0 {
		return ""
	}

	return RedactedStr
}

// Redacted returns a copy of the config safe to log.
func (c *Config) Redacted() Config {
	r := *c
	r.QBittorrentPassword = RedactString(r.QBittorrentPassword)
	r.QBittorrentBasicPass = RedactString(r.QBittorrentBasicPass)
	r.MetricsBasicAuthUsers = RedactString(r.MetricsBasicAuthUsers)
	return r
}
