// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/pkg/redact"
)

const shutdownTimeout = 5 * time.Second

// ServerOptions configures the metrics listener.
type ServerOptions struct {
	Host string
	Port int
	// BasicAuthUsers is a comma separated list of user:password pairs.
	BasicAuthUsers string
}

// Server exposes a MetricsManager's registry on /metrics, separate from the
// API listener so scrapes never go through the API base URL or CORS.
type Server struct {
	server         *http.Server
	basicAuthUsers map[string]string
	manager        *MetricsManager
}

func NewMetricsServer(manager *MetricsManager, opts ServerOptions) *Server {
	s := &Server{
		basicAuthUsers: parseBasicAuthUsers(opts.BasicAuthUsers),
		manager:        manager,
	}

	s.server = &http.Server{
		Addr:              net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(s.basicAuthUsers) > 0 {
		r.Use(middleware.BasicAuth("metrics", s.basicAuthUsers))
	}

	scrape := promhttp.HandlerFor(s.manager.GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          promErrorLogger{},
	})
	r.Method(http.MethodGet, "/metrics", scrape)

	return r
}

// promErrorLogger forwards promhttp gathering errors to zerolog.
type promErrorLogger struct{}

func (promErrorLogger) Println(v ...any) {
	log.Error().Str("module", "metrics").Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func parseBasicAuthUsers(cfg string) map[string]string {
	users := make(map[string]string)

	for cred := range strings.SplitSeq(cfg, ",") {
		cred = strings.TrimSpace(cred)
		if cred == "" {
			continue
		}
		user, pass, ok := strings.Cut(cred, ":")
		if !ok || user == "" || strings.Contains(pass, ":") {
			log.Warn().Msgf("Invalid metrics basic auth credentials: %s", redact.BasicAuthUser(cred))
			continue
		}
		users[user] = pass
	}

	return users
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.server.Addr).Bool("basicAuth", len(s.basicAuthUsers) > 0).Msg("Starting Prometheus metrics server")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}
