package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/apperror"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/repository"
)

// ErrVAPIDNotConfigured is returned when web push is not set up.
var ErrVAPIDNotConfigured = errors.New("VAPID keys not configured")

// SubscribeInput carries a browser's push subscription.
type SubscribeInput struct {
	Endpoint  string  `json:"endpoint" validate:"required,url"`
	P256dh    string  `json:"p256dh" validate:"required"`
	Auth      string  `json:"auth" validate:"required"`
	UserAgent *string `json:"userAgent,omitempty"`
}

// NotificationService exposes delivery history and push subscription
// management.
type NotificationService struct {
	records         repository.NotificationRecordRepositoryInterface
	push            repository.PushSubscriptionRepositoryInterface
	vapidPublicKey  string
	vapidPrivateKey string
}

func NewNotificationService(records repository.NotificationRecordRepositoryInterface, push repository.PushSubscriptionRepositoryInterface, vapidPublic, vapidPrivate string) *NotificationService {
	return &NotificationService{
		records:         records,
		push:            push,
		vapidPublicKey:  vapidPublic,
		vapidPrivateKey: vapidPrivate,
	}
}

// History returns the user's delivery history, newest first. Failed attempts
// are included so users can see why an alert never arrived.
func (s *NotificationService) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.records.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if records == nil {
		records = []model.NotificationRecord{}
	}
	return records, nil
}

// PushConfigured reports whether web push can be offered to clients.
func (s *NotificationService) PushConfigured() bool {
	return s.vapidPublicKey != "" && s.vapidPrivateKey != ""
}

// VAPIDPublicKey returns the key browsers need to subscribe.
func (s *NotificationService) VAPIDPublicKey() (string, error) {
	if !s.PushConfigured() {
		return "", ErrVAPIDNotConfigured
	}
	return s.vapidPublicKey, nil
}

// Subscribe registers a browser push subscription for the user.
func (s *NotificationService) Subscribe(ctx context.Context, userID uuid.UUID, input SubscribeInput) (*model.PushSubscription, error) {
	if !s.PushConfigured() {
		return nil, apperror.BadRequest("push notifications are not configured")
	}
	if input.Endpoint == "" || input.P256dh == "" || input.Auth == "" {
		return nil, apperror.BadRequest("incomplete push subscription")
	}

	sub := &model.PushSubscription{
		ID:        uuid.New(),
		UserID:    userID,
		Endpoint:  input.Endpoint,
		P256dh:    input.P256dh,
		Auth:      input.Auth,
		UserAgent: input.UserAgent,
	}
	if err := s.push.CreateSubscription(ctx, sub); err != nil {
		return nil, apperror.Internal(err)
	}
	return sub, nil
}

// Unsubscribe removes the user's subscription for an endpoint.
func (s *NotificationService) Unsubscribe(ctx context.Context, userID uuid.UUID, endpoint string) error {
	if endpoint == "" {
		return apperror.BadRequest("endpoint required")
	}
	if err := s.push.DeleteSubscription(ctx, userID, endpoint); err != nil {
		return apperror.Internal(err)
	}
	return nil
}
