// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/api/handlers"
	"github.com/autobrr/cleango/internal/domain"
)

// NewPprofRouter serves the runtime profiles and the block/mutex toggles.
func NewPprofRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Route("/debug/pprof", func(r chi.Router) {
		handlers.NewPprofController().Routes(r)

		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.HandleFunc("/*", pprof.Index)
	})

	return r
}

// StartPprofServer starts the profiling server when enabled. It never
// listens on the API port.
func StartPprofServer(cfg *domain.Config) {
	if !cfg.PprofEnabled {
		return
	}

	pprofAddr := fmt.Sprintf("%s:%d", cfg.PprofHost, cfg.PprofPort)
	r := NewPprofRouter()

	go func() {
		log.Info().Msgf("Starting pprof server on %s", pprofAddr)
		log.Info().Msgf("  - CPU:          go tool pprof http://%s/debug/pprof/profile?seconds=30", pprofAddr)
		log.Info().Msgf("  - Heap:         go tool pprof http://%s/debug/pprof/heap", pprofAddr)
		log.Info().Msgf("  - Goroutines:   go tool pprof http://%s/debug/pprof/goroutine", pprofAddr)
		log.Info().Msgf("  - Enable block: curl -X POST http://%s/debug/pprof/block/enable", pprofAddr)
		log.Info().Msgf("  - Check status: curl http://%s/debug/pprof/status", pprofAddr)

		if err := http.ListenAndServe(pprofAddr, r); err != nil {
			log.Error().Err(err).Msg("Profiling server failed")
		}
	}()
}
