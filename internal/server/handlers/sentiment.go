package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"citywatch/internal/adapter/storage"
	"citywatch/internal/domain/area"
)

// SentimentHandler handles area sentiment and alert HTTP requests.
type SentimentHandler struct {
	store  *storage.SentimentStore
	logger *zap.Logger
}

// NewSentimentHandler creates a new sentiment handler.
func NewSentimentHandler(store *storage.SentimentStore, logger *zap.Logger) *SentimentHandler {
	return &SentimentHandler{
		store:  store,
		logger: logger,
	}
}

// ListAreaSentiments returns the latest measurement for every area.
func (h *SentimentHandler) ListAreaSentiments(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListSentiments(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list area sentiments", err)
		return
	}

	if results == nil {
		results = []area.Sentiment{}
	}

	respondWithJSON(w, http.StatusOK, results)
}

// GetAreaSentiment returns the latest measurement for one area.
func (h *SentimentHandler) GetAreaSentiment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "Missing area name", nil)
		return
	}

	result, err := h.store.GetSentiment(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Area not found", nil)
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to get area sentiment", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ListAlerts returns the most recent triggered alerts.
func (h *SentimentHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultListLimit)

	alerts, err := h.store.ListAlerts(r.Context(), limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list alerts", err)
		return
	}

	if alerts == nil {
		alerts = []area.Alert{}
	}

	respondWithJSON(w, http.StatusOK, alerts)
}

func (h *SentimentHandler) respondError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		h.logger.Error("http error", zap.Int("code", code), zap.String("message", message), zap.Error(err))
	}
	respondWithError(w, code, message)
}
