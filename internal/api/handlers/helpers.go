// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/models"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode JSON response")
		}
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{
		Error: message,
	})
}

// PageParams holds the page and per_page query values.
type PageParams struct {
	Page    int
	PerPage int
}

// ParsePageParams reads page and per_page from the query string. Missing or
// malformed values fall back to page 1 and the default page size; per_page
// outside the allowed sizes falls back silently.
func ParsePageParams(r *http.Request) PageParams {
	p := PageParams{Page: 1, PerPage: models.DefaultPerPage}

	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			p.Page = parsed
		}
	}
	if v := q.Get("per_page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			p.PerPage = models.NormalizePerPage(parsed)
		}
	}

	return p
}
