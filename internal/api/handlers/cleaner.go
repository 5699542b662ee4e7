// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
	"github.com/autobrr/cleango/internal/services/cleaner"
)

const deletionDateLayout = "2006-01-02 15:04:05"

// CleanerEngine is the part of cleaner.Service the API drives.
type CleanerEngine interface {
	Initialized() bool
	Clean(ctx context.Context, trigger cleaner.TriggerKind) (*cleaner.PassResult, error)
	Connected(ctx context.Context) bool
	Status() cleaner.CleanStatus
}

// DeletionHistory reads the audit log.
type DeletionHistory interface {
	ListPage(ctx context.Context, page, perPage int) (*models.DeletedTorrentPage, error)
	AggregateStats(ctx context.Context) (*models.DeletedTorrentStats, error)
}

type CleanerHandler struct {
	engine  CleanerEngine
	history DeletionHistory
}

func NewCleanerHandler(engine CleanerEngine, history DeletionHistory) *CleanerHandler {
	return &CleanerHandler{engine: engine, history: history}
}

func (h *CleanerHandler) Routes(r chi.Router) {
	r.Post("/clean", h.Clean)
	r.Get("/status", h.ConnectionStatus)
	r.Get("/deleted", h.ListDeleted)
	r.Get("/stats", h.Stats)
	r.Get("/clean-status", h.CleanStatus)
}

type DeletedTorrentResponse struct {
	Name           string `json:"name"`
	SizeBytes      int64  `json:"size_bytes"`
	TrackerMessage string `json:"tracker_message"`
}

type CleanResponse struct {
	Deleted []DeletedTorrentResponse `json:"deleted"`
}

type cleanErrorResponse struct {
	Error   string                   `json:"error"`
	Deleted []DeletedTorrentResponse `json:"deleted"`
}

// Clean runs a manual pass.
func (h *CleanerHandler) Clean(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Initialized() {
		RespondError(w, http.StatusInternalServerError, "Cleaner not initialized")
		return
	}

	// the pass outlives a dropped client connection
	res, err := h.engine.Clean(context.WithoutCancel(r.Context()), cleaner.TriggerManual)
	switch {
	case err == nil:
		RespondJSON(w, http.StatusOK, CleanResponse{Deleted: deletedResponse(res)})
	case errors.Is(err, domain.ErrPassInProgress):
		RespondError(w, http.StatusConflict, "A clean pass is already running")
	case errors.Is(err, domain.ErrNotInitialized):
		RespondError(w, http.StatusInternalServerError, "Cleaner not initialized")
	case domain.IsKind(err, domain.KindPersistence):
		RespondJSON(w, http.StatusInternalServerError, cleanErrorResponse{
			Error:   err.Error(),
			Deleted: deletedResponse(res),
		})
	default:
		RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

func deletedResponse(res *cleaner.PassResult) []DeletedTorrentResponse {
	out := make([]DeletedTorrentResponse, 0)
	if res == nil {
		return out
	}
	for _, d := range res.Removed {
		out = append(out, DeletedTorrentResponse{
			Name:           d.Name,
			SizeBytes:      d.Size,
			TrackerMessage: d.TrackerMessage,
		})
	}
	return out
}

type ConnectionStatusResponse struct {
	Status string `json:"status"`
}

// ConnectionStatus probes qBittorrent.
func (h *CleanerHandler) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	status := "disconnected"
	if h.engine.Initialized() && h.engine.Connected(r.Context()) {
		status = "connected"
	}
	RespondJSON(w, http.StatusOK, ConnectionStatusResponse{Status: status})
}

type HistoryEntryResponse struct {
	Name           string `json:"name"`
	Size           int64  `json:"size"`
	TrackerMessage string `json:"tracker_message"`
	DeletionDate   string `json:"deletion_date"`
}

type HistoryPageResponse struct {
	Torrents   []HistoryEntryResponse `json:"torrents"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PerPage    int                    `json:"per_page"`
	TotalPages int                    `json:"total_pages"`
}

func (h *CleanerHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	params := ParsePageParams(r)

	page, err := h.history.ListPage(r.Context(), params.Page, params.PerPage)
	if err != nil {
		log.Error().Err(err).Int("page", params.Page).Int("perPage", params.PerPage).Msg("Failed to list deleted torrents")
		RespondError(w, http.StatusInternalServerError, "Failed to list deleted torrents")
		return
	}

	resp := HistoryPageResponse{
		Torrents:   make([]HistoryEntryResponse, 0, len(page.Torrents)),
		Total:      page.Total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
	}
	for _, rec := range page.Torrents {
		resp.Torrents = append(resp.Torrents, HistoryEntryResponse{
			Name:           rec.Name,
			Size:           rec.SizeBytes,
			TrackerMessage: rec.TrackerMessage,
			DeletionDate:   rec.DeletionDate.Format(deletionDateLayout),
		})
	}

	RespondJSON(w, http.StatusOK, resp)
}

func (h *CleanerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.AggregateStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate deletion stats")
		RespondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

// CleanStatusResponse renders empty fields as null before the first pass.
type CleanStatusResponse struct {
	Timestamp       *time.Time `json:"timestamp"`
	Type            *string    `json:"type"`
	Result          *string    `json:"result"`
	TorrentsRemoved int        `json:"torrents_removed"`
}

func (h *CleanerHandler) CleanStatus(w http.ResponseWriter, _ *http.Request) {
	st := h.engine.Status()

	resp := CleanStatusResponse{
		Timestamp:       st.Timestamp,
		TorrentsRemoved: st.TorrentsRemoved,
	}
	if st.Type != "" {
		t := string(st.Type)
		resp.Type = &t
	}
	if st.Result != "" {
		resp.Result = &st.Result
	}

	RespondJSON(w, http.StatusOK, resp)
}
