package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dealradar/backend/internal/service"
)

// PreferenceHandler serves the user's notification policy.
type PreferenceHandler struct {
	service PreferenceServiceInterface
}

func NewPreferenceHandler(service PreferenceServiceInterface) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	prefs, err := h.service.Get(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input service.UpdatePreferenceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs, err := h.service.Update(r.Context(), userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
