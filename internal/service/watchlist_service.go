package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealradar/backend/internal/apperror"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/repository"
)

// AddWatchlistInput adds a listing to the user's watchlist, optionally with
// a one-shot price-drop threshold.
type AddWatchlistInput struct {
	ListingID      uuid.UUID `json:"listingId" validate:"required"`
	PriceThreshold *string   `json:"priceThreshold,omitempty"`
}

// WatchlistService manages the user's watched listings.
type WatchlistService struct {
	watchlist repository.WatchlistRepositoryInterface
	listings  repository.ListingRepositoryInterface
}

func NewWatchlistService(watchlist repository.WatchlistRepositoryInterface, listings repository.ListingRepositoryInterface) *WatchlistService {
	return &WatchlistService{watchlist: watchlist, listings: listings}
}

// Add watches a listing. The threshold must be positive and below the
// listing's current price, otherwise the alert would fire immediately.
func (s *WatchlistService) Add(ctx context.Context, userID uuid.UUID, input AddWatchlistInput) (*model.WatchlistItem, error) {
	listing, err := s.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("listing")
		}
		return nil, apperror.Internal(err)
	}

	item := &model.WatchlistItem{
		ID:        uuid.New(),
		UserID:    userID,
		ListingID: listing.ID,
	}

	if input.PriceThreshold != nil && *input.PriceThreshold != "" {
		th, err := decimal.NewFromString(*input.PriceThreshold)
		if err != nil || !th.IsPositive() {
			return nil, apperror.ValidationError("priceThreshold", "must be a positive amount")
		}
		if th.GreaterThanOrEqual(listing.Price) {
			return nil, apperror.ValidationError("priceThreshold", "must be below the current price")
		}
		item.PriceThreshold = &th
	}

	if err := s.watchlist.Create(ctx, item); err != nil {
		return nil, apperror.Internal(err)
	}
	return item, nil
}

// List returns the user's watchlist.
func (s *WatchlistService) List(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	items, err := s.watchlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return items, nil
}

// Remove deletes one of the user's watchlist items.
func (s *WatchlistService) Remove(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.watchlist.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("watchlist item")
		}
		return apperror.Internal(err)
	}
	return nil
}
