// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleango/internal/testdb"
)

func TestNewMetricsServer(t *testing.T) {
	t.Parallel()

	manager := NewMetricsManager(nil, nil)

	tests := []struct {
		name             string
		host             string
		port             int
		basicAuthUsers   string
		expectedAddr     string
		expectedAuthSize int
	}{
		{
			name:             "default config",
			host:             "127.0.0.1",
			port:             9074,
			expectedAddr:     "127.0.0.1:9074",
			expectedAuthSize: 0,
		},
		{
			name:             "with single basic auth user",
			host:             "0.0.0.0",
			port:             8080,
			basicAuthUsers:   "user:password",
			expectedAddr:     "0.0.0.0:8080",
			expectedAuthSize: 1,
		},
		{
			name:             "with multiple basic auth users",
			host:             "localhost",
			port:             9191,
			basicAuthUsers:   "user1:pass1,user2:pass2",
			expectedAddr:     "localhost:9191",
			expectedAuthSize: 2,
		},
		{
			name:             "with invalid auth entry skipped",
			host:             "localhost",
			port:             9074,
			basicAuthUsers:   "user1:pass1,invalidentry,user2:pass2",
			expectedAddr:     "localhost:9074",
			expectedAuthSize: 2,
		},
		{
			name:             "with whitespace in auth entries",
			host:             "localhost",
			port:             9074,
			basicAuthUsers:   " user1:pass1 , user2:pass2 ",
			expectedAddr:     "localhost:9074",
			expectedAuthSize: 2,
		},
		{
			name:             "with password containing a colon rejected",
			host:             "::1",
			port:             9074,
			basicAuthUsers:   "user1:pa:ss,user2:pass2",
			expectedAddr:     "[::1]:9074",
			expectedAuthSize: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := NewMetricsServer(manager, ServerOptions{Host: tt.host, Port: tt.port, BasicAuthUsers: tt.basicAuthUsers})

			require.NotNil(t, server)
			assert.NotNil(t, server.server)
			assert.Equal(t, tt.expectedAddr, server.server.Addr)
			assert.Len(t, server.basicAuthUsers, tt.expectedAuthSize)
			assert.Equal(t, manager, server.manager)
		})
	}
}

func TestMetricsServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	manager := NewMetricsManager(nil, nil)
	server := NewMetricsServer(manager, ServerOptions{Host: "localhost", Port: 9074})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body := rec.Body.String()
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "cleango_audit_write_conn_recoveries_total")
}

func TestMetricsServer_MetricsEndpointWithBasicAuth(t *testing.T) {
	t.Parallel()

	manager := NewMetricsManager(nil, nil)
	server := NewMetricsServer(manager, ServerOptions{Host: "localhost", Port: 9074, BasicAuthUsers: "admin:secret"})

	tests := []struct {
		name     string
		user     string
		pass     string
		wantCode int
	}{
		{name: "without credentials", wantCode: http.StatusUnauthorized},
		{name: "with wrong credentials", user: "admin", pass: "wrong", wantCode: http.StatusUnauthorized},
		{name: "with correct credentials", user: "admin", pass: "secret", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()

			server.server.Handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestMetricsServer_NonMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server := NewMetricsServer(NewMetricsManager(nil, nil), ServerOptions{Host: "localhost", Port: 9074})

	req := httptest.NewRequest(http.MethodGet, "/other", nil)
	rec := httptest.NewRecorder()

	server.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsServer_ListenAndServeStopsOnCancel(t *testing.T) {
	server := NewMetricsServer(NewMetricsManager(nil, nil), ServerOptions{Host: "127.0.0.1", Port: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop after cancel")
	}
}

func TestMetricsServer_ScrapesAuditDatabase(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t, "metrics-audit")
	server := NewMetricsServer(NewMetricsManager(nil, db), ServerOptions{Host: "localhost", Port: 9074})

	rec := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cleango_audit_db_open 1")
}
