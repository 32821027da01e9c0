package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
)

type MockRuleRepo struct {
	mock.Mock
}

func (m *MockRuleRepo) Create(ctx context.Context, rule *model.AlertRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.AlertRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertRule), args.Error(1)
}

func (m *MockRuleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AlertRule, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AlertRule), args.Error(1)
}

func (m *MockRuleRepo) ListEnabled(ctx context.Context) ([]model.AlertRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AlertRule), args.Error(1)
}

func (m *MockRuleRepo) Update(ctx context.Context, rule *model.AlertRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepo) SetEnabled(ctx context.Context, userID, id uuid.UUID, enabled bool) error {
	args := m.Called(ctx, userID, id, enabled)
	return args.Error(0)
}

func (m *MockRuleRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockRuleRepo) AdvanceWatermark(ctx context.Context, id uuid.UUID, to time.Time) error {
	args := m.Called(ctx, id, to)
	return args.Error(0)
}

type MockListingRepo struct {
	mock.Mock
}

func (m *MockListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

func (m *MockListingRepo) ListCreatedAfter(ctx context.Context, after time.Time, limit int) ([]model.Listing, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *MockListingRepo) ListRecent(ctx context.Context, limit int) ([]model.Listing, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *MockListingRepo) CurrentPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

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

type MockPrefRepo struct {
	mock.Mock
}

func (m *MockPrefRepo) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationPreference), args.Error(1)
}

func (m *MockPrefRepo) GetOrDefault(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationPreference), args.Error(1)
}

func (m *MockPrefRepo) Upsert(ctx context.Context, prefs *model.NotificationPreference) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *MockPrefRepo) TryIncrementDaily(ctx context.Context, userID uuid.UUID, localDay string, max int) (bool, error) {
	args := m.Called(ctx, userID, localDay, max)
	return args.Bool(0), args.Error(1)
}

type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) Record(ctx context.Context, rec *model.NotificationRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecordRepo) Exists(ctx context.Context, sourceID, listingID uuid.UUID, channel model.Channel) (bool, error) {
	args := m.Called(ctx, sourceID, listingID, channel)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecordRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NotificationRecord), args.Error(1)
}

// MockLocks hands the lock out unless held is set.
type MockLocks struct {
	held     bool
	acquired []int64
	released int
}

func (m *MockLocks) TryAcquire(ctx context.Context, key int64) (func(), bool, error) {
	if m.held {
		return nil, false, nil
	}
	m.acquired = append(m.acquired, key)
	return func() { m.released++ }, true, nil
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, del notify.Delivery) notify.Result {
	args := m.Called(ctx, del)
	return args.Get(0).(notify.Result)
}

type MockDigests struct {
	mock.Mock
}

func (m *MockDigests) Defer(ctx context.Context, userID uuid.UUID, cadence model.Cadence, ruleID uuid.UUID, ruleName string, listing *model.Listing) error {
	args := m.Called(ctx, userID, cadence, ruleID, ruleName, listing)
	return args.Error(0)
}

func (m *MockDigests) FlushAll(ctx context.Context, cadence model.Cadence, now time.Time) error {
	args := m.Called(ctx, cadence, now)
	return args.Error(0)
}

type MockTargets struct {
	mock.Mock
}

func (m *MockTargets) Resolve(ctx context.Context, userID uuid.UUID, prefs *model.NotificationPreference, channels []model.Channel) (notify.Target, error) {
	args := m.Called(ctx, userID, prefs, channels)
	return args.Get(0).(notify.Target), args.Error(1)
}
