package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/service"
)

// AlertRuleHandler serves the alert rule CRUD plus pause/resume and dry-run
// endpoints.
type AlertRuleHandler struct {
	service AlertRuleServiceInterface
}

func NewAlertRuleHandler(service AlertRuleServiceInterface) *AlertRuleHandler {
	return &AlertRuleHandler{service: service}
}

func (h *AlertRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input service.CreateRuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *AlertRuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rule, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *AlertRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	rules, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rules)
}

func (h *AlertRuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var input service.UpdateRuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.service.Update(r.Context(), userID, id, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *AlertRuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Pause disables a rule without losing its criteria or watermark.
func (h *AlertRuleHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

// Resume re-enables a paused rule.
func (h *AlertRuleHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *AlertRuleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	userID := GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.service.SetEnabled(r.Context(), userID, id, enabled); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// Test dry-runs rule criteria against recent listings; nothing is stored and
// nothing is sent.
func (h *AlertRuleHandler) Test(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input service.CreateRuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matches, err := h.service.DryRun(r.Context(), userID, input, queryInt(r, "limit", 100))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}
