// Package repository provides Postgres data access for the alert engine.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealradar/backend/internal/model"
)

//go:generate mockery --name=AlertRuleRepositoryInterface --output=../mocks --outpkg=mocks
type AlertRuleRepositoryInterface interface {
	Create(ctx context.Context, rule *model.AlertRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.AlertRule, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AlertRule, error)
	ListEnabled(ctx context.Context) ([]model.AlertRule, error)
	Update(ctx context.Context, rule *model.AlertRule) error
	SetEnabled(ctx context.Context, userID, id uuid.UUID, enabled bool) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	AdvanceWatermark(ctx context.Context, id uuid.UUID, to time.Time) error
}

//go:generate mockery --name=ListingRepositoryInterface --output=../mocks --outpkg=mocks
type ListingRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Listing, error)
	ListCreatedAfter(ctx context.Context, after time.Time, limit int) ([]model.Listing, error)
	ListRecent(ctx context.Context, limit int) ([]model.Listing, error)
	CurrentPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
}

//go:generate mockery --name=WatchlistRepositoryInterface --output=../mocks --outpkg=mocks
type WatchlistRepositoryInterface interface {
	Create(ctx context.Context, item *model.WatchlistItem) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WatchlistItem, error)
	ListActiveWithThreshold(ctx context.Context) ([]model.WatchlistItem, error)
	MarkAlertSent(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

//go:generate mockery --name=PreferenceRepositoryInterface --output=../mocks --outpkg=mocks
type PreferenceRepositoryInterface interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	GetOrDefault(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	Upsert(ctx context.Context, prefs *model.NotificationPreference) error
	TryIncrementDaily(ctx context.Context, userID uuid.UUID, localDay string, max int) (bool, error)
}

//go:generate mockery --name=NotificationRecordRepositoryInterface --output=../mocks --outpkg=mocks
type NotificationRecordRepositoryInterface interface {
	Record(ctx context.Context, rec *model.NotificationRecord) (bool, error)
	Exists(ctx context.Context, sourceID, listingID uuid.UUID, channel model.Channel) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationRecord, error)
}

//go:generate mockery --name=DigestRepositoryInterface --output=../mocks --outpkg=mocks
type DigestRepositoryInterface interface {
	Enqueue(ctx context.Context, entry *model.DigestEntry) (bool, error)
	ListUsersWithPending(ctx context.Context, cadence model.Cadence) ([]uuid.UUID, error)
	ListPending(ctx context.Context, userID uuid.UUID, cadence model.Cadence, before time.Time) ([]model.DigestEntry, error)
	TryMarkFlushed(ctx context.Context, userID uuid.UUID, cadence model.Cadence, periodKey string) (bool, error)
	DeleteEntries(ctx context.Context, ids []int64) error
}

//go:generate mockery --name=UserRepositoryInterface --output=../mocks --outpkg=mocks
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// JobLockRepositoryInterface hands out cross-process advisory locks so each
// job type runs at most once across workers.
type JobLockRepositoryInterface interface {
	TryAcquire(ctx context.Context, key int64) (release func(), acquired bool, err error)
}
