package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/service"
)

// Service interfaces consumed by the handlers, satisfied by the concrete
// services and mocked in tests.

type AlertRuleServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, input service.CreateRuleInput) (*model.AlertRule, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.AlertRule, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.AlertRule, error)
	Update(ctx context.Context, userID, id uuid.UUID, input service.UpdateRuleInput) (*model.AlertRule, error)
	SetEnabled(ctx context.Context, userID, id uuid.UUID, enabled bool) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DryRun(ctx context.Context, userID uuid.UUID, input service.CreateRuleInput, limit int) ([]model.Listing, error)
}

type WatchlistServiceInterface interface {
	Add(ctx context.Context, userID uuid.UUID, input service.AddWatchlistInput) (*model.WatchlistItem, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error)
	Remove(ctx context.Context, userID, id uuid.UUID) error
}

type PreferenceServiceInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	Update(ctx context.Context, userID uuid.UUID, input service.UpdatePreferenceInput) (*model.NotificationPreference, error)
}

type NotificationServiceInterface interface {
	History(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationRecord, error)
	PushConfigured() bool
	VAPIDPublicKey() (string, error)
	Subscribe(ctx context.Context, userID uuid.UUID, input service.SubscribeInput) (*model.PushSubscription, error)
	Unsubscribe(ctx context.Context, userID uuid.UUID, endpoint string) error
}
