package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/service"
)

// WatchlistHandler serves watchlist management.
type WatchlistHandler struct {
	service WatchlistServiceInterface
}

func NewWatchlistHandler(service WatchlistServiceInterface) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input service.AddWatchlistInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.service.Add(r.Context(), userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Remove(r.Context(), userID, id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
