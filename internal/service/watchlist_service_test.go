package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/backend/internal/apperror"
	"github.com/dealradar/backend/internal/model"
)

type MockWatchlistRepo struct {
	mock.Mock
}

func (m *MockWatchlistRepo) Create(ctx context.Context, item *model.WatchlistItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockWatchlistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WatchlistItem), args.Error(1)
}

func (m *MockWatchlistRepo) ListActiveWithThreshold(ctx context.Context) ([]model.WatchlistItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WatchlistItem), args.Error(1)
}

func (m *MockWatchlistRepo) MarkAlertSent(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockWatchlistRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func watchedListing() *model.Listing {
	return &model.Listing{
		ID:        uuid.New(),
		Title:     "PS5 disc edition",
		Price:     decimal.RequireFromString("350.00"),
		CreatedAt: time.Now().Add(-24 * time.Hour),
	}
}

func TestWatchlistService_Add(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		threshold *string
		wantErr   bool
	}{
		{name: "without threshold"},
		{name: "threshold below price", threshold: strPtr("300.00")},
		{name: "threshold equals price", threshold: strPtr("350.00"), wantErr: true},
		{name: "threshold above price", threshold: strPtr("400.00"), wantErr: true},
		{name: "zero threshold", threshold: strPtr("0"), wantErr: true},
		{name: "malformed threshold", threshold: strPtr("cheap"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			listing := watchedListing()
			listingRepo := &MockListingRepo{}
			listingRepo.On("GetByID", mock.Anything, listing.ID).Return(listing, nil)
			watchRepo := &MockWatchlistRepo{}
			watchRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
			svc := NewWatchlistService(watchRepo, listingRepo)

			item, err := svc.Add(context.Background(), uuid.New(), AddWatchlistInput{
				ListingID:      listing.ID,
				PriceThreshold: tt.threshold,
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, item.AlertSent)
			if tt.threshold != nil {
				require.NotNil(t, item.PriceThreshold)
			}
		})
	}
}

func TestWatchlistService_AddUnknownListing(t *testing.T) {
	t.Parallel()

	listingRepo := &MockListingRepo{}
	listingRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows)
	svc := NewWatchlistService(&MockWatchlistRepo{}, listingRepo)

	_, err := svc.Add(context.Background(), uuid.New(), AddWatchlistInput{ListingID: uuid.New()})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)
}
