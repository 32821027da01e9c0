package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dealradar/backend/internal/service"
)

// NotificationHandler serves delivery history and push subscription
// endpoints.
type NotificationHandler struct {
	service NotificationServiceInterface
}

func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// History lists the user's past deliveries, failures included.
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	records, err := h.service.History(r.Context(), userID, queryInt(r, "limit", 50))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// GetVAPIDPublicKey hands browsers the key they need to subscribe. Public:
// clients fetch it before any identity exists.
func (h *NotificationHandler) GetVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.VAPIDPublicKey()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"publicKey": key})
}

func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input service.SubscribeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.Subscribe(r.Context(), userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Unsubscribe(r.Context(), userID, input.Endpoint); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
