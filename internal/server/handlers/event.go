package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"citywatch/internal/adapter/storage"
	"citywatch/internal/domain/event"
	"citywatch/internal/domain/post"
)

const defaultListLimit = 50

// EventHandler handles event-related HTTP requests.
type EventHandler struct {
	store  *storage.EventStore
	logger *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(store *storage.EventStore, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		store:  store,
		logger: logger,
	}
}

// ListEvents returns the most recent synthesized events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultListLimit)

	events, err := h.store.ListEvents(r.Context(), limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	if events == nil {
		events = []event.SynthesizedEvent{}
	}

	respondWithJSON(w, http.StatusOK, events)
}

// GetEvent returns a specific event by ID.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Missing event ID", nil)
		return
	}

	e, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "Event not found", nil)
		} else {
			h.respondError(w, http.StatusInternalServerError, "Failed to get event", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}

// GetNearbyEvents returns events near a specific location.
func (h *EventHandler) GetNearbyEvents(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")

	if latStr == "" || lngStr == "" {
		h.respondError(w, http.StatusBadRequest, "Missing location parameters", nil)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid latitude", err)
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid longitude", err)
		return
	}

	radius := 5.0
	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid radius", err)
			return
		}
	}

	limit := parseLimit(r, defaultListLimit)

	location := post.GeoPoint{Latitude: lat, Longitude: lng}
	events, err := h.store.EventsNear(r.Context(), location, radius, limit)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to get nearby events", err)
		return
	}

	if events == nil {
		events = []event.SynthesizedEvent{}
	}

	respondWithJSON(w, http.StatusOK, events)
}

func (h *EventHandler) respondError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		h.logger.Error("http error", zap.Int("code", code), zap.String("message", message), zap.Error(err))
	}
	respondWithError(w, code, message)
}

func parseLimit(r *http.Request, fallback int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return fallback
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 500 {
		return fallback
	}

	return limit
}

// respondWithJSON writes a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a JSON error response.
func respondWithError(w http.ResponseWriter, code int, message string) {
	jsonResponse, _ := json.Marshal(map[string]string{"error": message})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
