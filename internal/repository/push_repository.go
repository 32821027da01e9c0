package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dealradar/backend/internal/model"
)

//go:generate mockery --name=PushSubscriptionRepositoryInterface --output=../mocks --outpkg=mocks
type PushSubscriptionRepositoryInterface interface {
	CreateSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

type pushRepository struct {
	db *sqlx.DB
}

// NewPushRepository creates a new push subscription repository
func NewPushRepository(db *sqlx.DB) PushSubscriptionRepositoryInterface {
	return &pushRepository{db: db}
}

func (r *pushRepository) CreateSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	query := `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, endpoint) DO UPDATE SET
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			user_agent = EXCLUDED.user_agent,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.UserAgent,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *pushRepository) GetSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	query := `SELECT * FROM push_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &subs, query, userID)
	return subs, err
}

func (r *pushRepository) DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error {
	query := `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`
	_, err := r.db.ExecContext(ctx, query, userID, endpoint)
	return err
}

func (r *pushRepository) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	query := `DELETE FROM push_subscriptions WHERE endpoint = $1`
	_, err := r.db.ExecContext(ctx, query, endpoint)
	return err
}
