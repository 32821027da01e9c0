package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dealradar/backend/internal/model"
)

type watchlistRepository struct {
	db *sqlx.DB
}

// NewWatchlistRepository creates a new watchlist repository
func NewWatchlistRepository(db *sqlx.DB) WatchlistRepositoryInterface {
	return &watchlistRepository{db: db}
}

// Create adds a listing to a user's watchlist
func (r *watchlistRepository) Create(ctx context.Context, item *model.WatchlistItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	query := `
		INSERT INTO watchlist_items (id, user_id, listing_id, price_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, listing_id) DO UPDATE SET
			price_threshold = EXCLUDED.price_threshold,
			alert_sent = false,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, alert_sent, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		item.ID, item.UserID, item.ListingID, item.PriceThreshold,
	).Scan(&item.ID, &item.AlertSent, &item.CreatedAt, &item.UpdatedAt)
}

// ListByUser returns a user's watchlist
func (r *watchlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM watchlist_items WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return items, nil
}

// ListActiveWithThreshold returns the scope of a price-drop tick: items with
// a threshold whose alert has not fired yet.
func (r *watchlistRepository) ListActiveWithThreshold(ctx context.Context) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM watchlist_items
		WHERE price_threshold IS NOT NULL AND alert_sent = false
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list active watchlist items: %w", err)
	}
	return items, nil
}

// MarkAlertSent flips the one-shot flag. The WHERE guard makes concurrent or
// replayed ticks idempotent: only the first caller sees true.
func (r *watchlistRepository) MarkAlertSent(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE watchlist_items SET alert_sent = true, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND alert_sent = false
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark alert sent: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// Delete removes an item
func (r *watchlistRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM watchlist_items WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete watchlist item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("watchlist item not found")
	}
	return nil
}
