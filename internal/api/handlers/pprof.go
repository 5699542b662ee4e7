// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PprofController toggles block and mutex profiling at runtime.
type PprofController struct {
	blockRate     atomic.Int64
	mutexFraction atomic.Int64
}

func NewPprofController() *PprofController {
	return &PprofController{}
}

func (pc *PprofController) Routes(r chi.Router) {
	r.Post("/block/enable", pc.EnableBlockProfile)
	r.Post("/block/disable", pc.DisableBlockProfile)
	r.Post("/mutex/enable", pc.EnableMutexProfile)
	r.Post("/mutex/disable", pc.DisableMutexProfile)
	r.Get("/status", pc.Status)
}

type PprofStatusResponse struct {
	BlockProfileRate     int `json:"blockProfileRate"`
	MutexProfileFraction int `json:"mutexProfileFraction"`
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func (pc *PprofController) EnableBlockProfile(w http.ResponseWriter, r *http.Request) {
	rate := queryInt(r, "rate", 1)
	runtime.SetBlockProfileRate(rate)
	pc.blockRate.Store(int64(rate))
	log.Info().Int("rate", rate).Msg("Block profiling enabled via API")
	pc.Status(w, r)
}

func (pc *PprofController) DisableBlockProfile(w http.ResponseWriter, r *http.Request) {
	runtime.SetBlockProfileRate(0)
	pc.blockRate.Store(0)
	log.Info().Msg("Block profiling disabled via API")
	pc.Status(w, r)
}

func (pc *PprofController) EnableMutexProfile(w http.ResponseWriter, r *http.Request) {
	fraction := queryInt(r, "fraction", 1)
	runtime.SetMutexProfileFraction(fraction)
	pc.mutexFraction.Store(int64(fraction))
	log.Info().Int("fraction", fraction).Msg("Mutex profiling enabled via API")
	pc.Status(w, r)
}

func (pc *PprofController) DisableMutexProfile(w http.ResponseWriter, r *http.Request) {
	runtime.SetMutexProfileFraction(0)
	pc.mutexFraction.Store(0)
	log.Info().Msg("Mutex profiling disabled via API")
	pc.Status(w, r)
}

// Status reports the current rates, 0 meaning disabled.
func (pc *PprofController) Status(w http.ResponseWriter, _ *http.Request) {
	RespondJSON(w, http.StatusOK, PprofStatusResponse{
		BlockProfileRate:     int(pc.blockRate.Load()),
		MutexProfileFraction: int(pc.mutexFraction.Load()),
	})
}
