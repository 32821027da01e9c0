package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/dealradar/backend/internal/model"
)

// listingRepository reads the listings feed populated by the (external)
// marketplace adapters. The engine never writes listings.
type listingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *sqlx.DB) ListingRepositoryInterface {
	return &listingRepository{db: db}
}

// GetByID returns a listing by ID
func (r *listingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.GetContext(ctx, &listing, `SELECT * FROM listings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &listing, nil
}

// ListCreatedAfter returns listings newer than the watermark, oldest first so
// a truncated batch still advances the watermark contiguously.
func (r *listingRepository) ListCreatedAfter(ctx context.Context, after time.Time, limit int) ([]model.Listing, error) {
	var listings []model.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings
		WHERE created_at > $1
		ORDER BY created_at ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list listings after %s: %w", after.Format(time.RFC3339), err)
	}
	return listings, nil
}

// ListRecent returns the newest listings; used by the test-rule dry run.
func (r *listingRepository) ListRecent(ctx context.Context, limit int) ([]model.Listing, error) {
	var listings []model.Listing
	err := r.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent listings: %w", err)
	}
	return listings, nil
}

// CurrentPrice returns the current price of a listing, for price-drop checks.
func (r *listingRepository) CurrentPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.db.GetContext(ctx, &price, `SELECT price FROM listings WHERE id = $1`, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("current price: %w", err)
	}
	return price, nil
}
