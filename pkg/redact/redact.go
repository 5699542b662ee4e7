// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package redact strips credentials from URLs and error messages before they
// reach logs or API responses.
package redact

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "REDACTED"

// query keys whose values are replaced, compared case-insensitively
var sensitiveParams = []string{"apikey", "api_key", "passkey", "token", "password", "sid"}

var (
	sensitiveParamRegex   = regexp.MustCompile(`(?i)\b(apikey|api_key|passkey|token|password|sid)=([^&\s]*)`)
	userinfoPasswordRegex = regexp.MustCompile(`(://[^/:@\s]+):([^@\s]+)@`)
)

// URLString redacts the userinfo password and sensitive query values of raw.
// Unparseable input falls back to String.
func URLString(raw string) string {
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return String(raw)
	}

	modified := false
	if parsed.User != nil {
		if _, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(parsed.User.Username(), placeholder)
			modified = true
		}
	}

	query := parsed.Query()
	for key := range query {
		if isSensitiveParam(key) {
			query[key] = []string{placeholder}
			modified = true
		}
	}

	if !modified {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func isSensitiveParam(key string) bool {
	for _, p := range sensitiveParams {
		if strings.EqualFold(key, p) {
			return true
		}
	}
	return false
}

// URLError returns a copy of the *url.Error inside err with its URL
// redacted. Other errors are returned unchanged.
func URLError(err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	return &url.Error{
		Op:  urlErr.Op,
		URL: URLString(urlErr.URL),
		Err: urlErr.Err,
	}
}

// String redacts URL fragments embedded in free text.
func String(s string) string {
	if s == "" {
		return s
	}
	out := sensitiveParamRegex.ReplaceAllString(s, "${1}="+placeholder)
	return userinfoPasswordRegex.ReplaceAllString(out, "${1}:"+placeholder+"@")
}

// BasicAuthUser turns "user:password" into "user:REDACTED".
func BasicAuthUser(cred string) string {
	idx := strings.IndexByte(cred, ':')
	if idx < 0 {
		return cred
	}
	return cred[:idx+1] + placeholder
}
