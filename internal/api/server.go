// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/api/handlers"
	"github.com/autobrr/cleango/internal/api/middleware"
	"github.com/autobrr/cleango/internal/config"
	"github.com/autobrr/cleango/internal/database"
	"github.com/autobrr/cleango/internal/services/cleaner"
	"github.com/autobrr/cleango/internal/web/swagger"
)

const shutdownTimeout = 10 * time.Second

// Dependencies holds everything the HTTP layer reads from.
type Dependencies struct {
	Config  *config.AppConfig
	Cleaner *cleaner.Service
	History handlers.DeletionHistory
	DB      *database.DB
}

type Server struct {
	deps   *Dependencies
	server *http.Server
}

func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// NewRouter registers the API and health routes without base URL handling
// or compression.
func NewRouter(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(deps.Config.Current().CORSAllowedOrigins))

	r.Route("/health", handlers.NewHealthHandler(readinessChecks(deps)...).Routes)

	cleanerHandler := handlers.NewCleanerHandler(deps.Cleaner, deps.History)
	versionHandler := handlers.NewVersionHandler()

	r.Route("/api", func(r chi.Router) {
		cleanerHandler.Routes(r)
		r.Get("/version", versionHandler.GetVersion)
		r.Get("/openapi.yaml", swagger.ServeOpenAPISpec)
	})

	return r
}

// corsMiddleware allows cross-origin reads from the configured origins only.
// With none configured the API is same-origin. The API carries no cookies or
// auth, so credentials are never allowed.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}).Handler
}

func readinessChecks(deps *Dependencies) []handlers.ReadinessCheck {
	if deps.DB == nil {
		return nil
	}
	return []handlers.ReadinessCheck{{
		Name: "database",
		Check: func(ctx context.Context) error {
			return deps.DB.Conn().PingContext(ctx)
		},
	}}
}

// Handler returns the full HTTP handler: the router, mounted under the
// configured base URL and wrapped in response compression.
func (s *Server) Handler() (http.Handler, error) {
	compress, err := middleware.Compress()
	if err != nil {
		return nil, fmt.Errorf("build compression middleware: %w", err)
	}

	router := NewRouter(s.deps)

	baseURL := normalizeBaseURL(s.deps.Config.Current().BaseURL)
	if baseURL == "/" {
		return compress(router), nil
	}

	root := chi.NewRouter()
	root.Mount(strings.TrimSuffix(baseURL, "/"), router)
	root.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, baseURL, http.StatusTemporaryRedirect)
	})

	return compress(root), nil
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" || baseURL == "/" {
		return "/"
	}
	if !strings.HasPrefix(baseURL, "/") {
		baseURL = "/" + baseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	cfg := s.deps.Config.Current()
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Str("baseUrl", normalizeBaseURL(cfg.BaseURL)).Msg("Starting API server")
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
			return fmt.Errorf("shutdown api server: %w", err)
		}
		return nil
	}
}
