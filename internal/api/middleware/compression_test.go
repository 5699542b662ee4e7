// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressedHandler(t *testing.T, body string, contentType string) http.Handler {
	t.Helper()

	compress, err := Compress()
	require.NoError(t, err)

	return compress(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = io.WriteString(w, body)
	}))
}

func TestCompress_Negotiation(t *testing.T) {
	body := `{"torrents":[` + strings.Repeat(`{"name":"Some.Release.2025.1080p","size":1073741824},`, 100) + `{}]}`

	tests := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
		decode         func(io.Reader) (io.Reader, error)
	}{
		{
			name:           "zstd preferred",
			acceptEncoding: "gzip, br, zstd",
			wantEncoding:   "zstd",
			decode: func(r io.Reader) (io.Reader, error) {
				return zstd.NewReader(r)
			},
		},
		{
			name:           "brotli",
			acceptEncoding: "gzip, br",
			wantEncoding:   "br",
			decode: func(r io.Reader) (io.Reader, error) {
				return brotli.NewReader(r), nil
			},
		},
		{
			name:           "gzip",
			acceptEncoding: "gzip",
			wantEncoding:   "gzip",
			decode: func(r io.Reader) (io.Reader, error) {
				return gzip.NewReader(r)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := compressedHandler(t, body, "application/json")

			req := httptest.NewRequest(http.MethodGet, "/api/deleted", nil)
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantEncoding, rec.Header().Get("Content-Encoding"))

			r, err := tt.decode(rec.Body)
			require.NoError(t, err)
			decoded, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, body, string(decoded))
		})
	}
}

func TestCompress_SmallBodyUntouched(t *testing.T) {
	h := compressedHandler(t, `{"status":"connected"}`, "application/json")

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.JSONEq(t, `{"status":"connected"}`, rec.Body.String())
}

func TestCompress_SkipsOtherContentTypes(t *testing.T) {
	h := compressedHandler(t, strings.Repeat("\x00", 4096), "application/octet-stream")

	req := httptest.NewRequest(http.MethodGet, "/blob", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Len(t, rec.Body.Bytes(), 4096)
}
