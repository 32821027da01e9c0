package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/backend/internal/config"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
)

type engineFixture struct {
	rules      *MockRuleRepo
	listings   *MockListingRepo
	watchlist  *MockWatchlistRepo
	prefs      *MockPrefRepo
	records    *MockRecordRepo
	locks      *MockLocks
	dispatcher *MockDispatcher
	digests    *MockDigests
	targets    *MockTargets
	engine     *Engine
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		rules:      &MockRuleRepo{},
		listings:   &MockListingRepo{},
		watchlist:  &MockWatchlistRepo{},
		prefs:      &MockPrefRepo{},
		records:    &MockRecordRepo{},
		locks:      &MockLocks{},
		dispatcher: &MockDispatcher{},
		digests:    &MockDigests{},
		targets:    &MockTargets{},
	}
	cfg := config.EngineConfig{
		Workers:              1,
		TickTimeout:          time.Minute,
		ItemTimeout:          10 * time.Second,
		DegenerateRulePolicy: "skip",
		ListingBatchSize:     100,
	}
	f.engine = New(cfg, Deps{
		Rules:      f.rules,
		Listings:   f.listings,
		Watchlist:  f.watchlist,
		Prefs:      f.prefs,
		Records:    f.records,
		Locks:      f.locks,
		Targets:    f.targets,
		Dispatcher: f.dispatcher,
		Digests:    f.digests,
	}, nil)
	return f
}

func enabledRule(userID uuid.UUID, created time.Time) model.AlertRule {
	return model.AlertRule{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "gpu deals",
		Enabled:   true,
		Keywords:  []string{"rtx"},
		Channels:  []string{"email"},
		CreatedAt: created,
	}
}

func listingAt(title string, created time.Time) model.Listing {
	return model.Listing{
		ID:        uuid.New(),
		Title:     title,
		Category:  "electronics",
		Price:     decimal.RequireFromString("850.00"),
		DealScore: 90,
		URL:       "https://market.example/l/1",
		CreatedAt: created,
	}
}

func immediateUTCPrefs(userID uuid.UUID) *model.NotificationPreference {
	p := model.DefaultPreference(userID)
	p.Timezone = "UTC"
	return p
}

func TestRuleCheckDispatchesMatchAndAdvancesWatermark(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()
	created := time.Now().Add(-2 * time.Hour)
	rule := enabledRule(userID, created)
	listing := listingAt("RTX 4080 like new", created.Add(time.Hour))

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)
	f.listings.On("ListCreatedAfter", mock.Anything, created, 100).Return([]model.Listing{listing}, nil)
	f.prefs.On("GetOrDefault", mock.Anything, userID).Return(immediateUTCPrefs(userID), nil)
	f.records.On("Exists", mock.Anything, rule.ID, listing.ID, model.ChannelEmail).Return(false, nil)
	f.targets.On("Resolve", mock.Anything, userID, mock.Anything, []model.Channel{model.ChannelEmail}).
		Return(notify.Target{UserID: userID, Email: "u@example.com"}, nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(del notify.Delivery) bool {
		return del.SourceType == model.SourceRule &&
			del.SourceID == rule.ID &&
			del.ListingID == listing.ID &&
			del.CountAgainstLimit
	})).Return(notify.Result{
		AllRecorded: true,
		Results:     []notify.ChannelResult{{Channel: model.ChannelEmail, Outcome: model.OutcomeSent}},
	})
	f.rules.On("AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt).Return(nil)

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
	f.rules.AssertCalled(t, "AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt)
	assert.Equal(t, []int64{LockRuleCheck}, f.locks.acquired)
	assert.Equal(t, 1, f.locks.released)

	m, ok := f.engine.Metrics().LastRun("rule_check")
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Matches)
	assert.Equal(t, int64(1), m.Sent)
}

func TestRuleCheckSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.locks.held = true

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	f.rules.AssertNotCalled(t, "ListEnabled", mock.Anything)
	m, ok := f.engine.Metrics().LastRun("rule_check")
	require.True(t, ok)
	assert.True(t, m.Skipped)
}

func TestRuleCheckSkipsAlreadyDeliveredListing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()
	created := time.Now().Add(-2 * time.Hour)
	rule := enabledRule(userID, created)
	listing := listingAt("RTX 4080", created.Add(time.Hour))

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)
	f.listings.On("ListCreatedAfter", mock.Anything, created, 100).Return([]model.Listing{listing}, nil)
	f.prefs.On("GetOrDefault", mock.Anything, userID).Return(immediateUTCPrefs(userID), nil)
	f.records.On("Exists", mock.Anything, rule.ID, listing.ID, model.ChannelEmail).Return(true, nil)
	f.rules.On("AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt).Return(nil)

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.rules.AssertCalled(t, "AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt)
}

func TestRuleCheckHoldsWatermarkWhenRecordingFails(t *testing.T) {
	t.Parallel()

	// A crash between send and record means the next tick re-evaluates the
	// listing; the watermark must not move past it.
	f := newFixture(t)
	userID := uuid.New()
	created := time.Now().Add(-2 * time.Hour)
	rule := enabledRule(userID, created)
	first := listingAt("RTX 4080", created.Add(30*time.Minute))
	second := listingAt("RTX 4090", created.Add(time.Hour))

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)
	f.listings.On("ListCreatedAfter", mock.Anything, created, 100).Return([]model.Listing{first, second}, nil)
	f.prefs.On("GetOrDefault", mock.Anything, userID).Return(immediateUTCPrefs(userID), nil)
	f.records.On("Exists", mock.Anything, rule.ID, first.ID, model.ChannelEmail).Return(false, nil)
	f.targets.On("Resolve", mock.Anything, userID, mock.Anything, mock.Anything).
		Return(notify.Target{UserID: userID}, nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(notify.Result{AllRecorded: false})

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	// Processing stopped at the first listing and nothing advanced.
	f.records.AssertNotCalled(t, "Exists", mock.Anything, rule.ID, second.ID, model.ChannelEmail)
	f.rules.AssertNotCalled(t, "AdvanceWatermark", mock.Anything, mock.Anything, mock.Anything)
}

func TestRuleCheckDefersDigestUsers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()
	created := time.Now().Add(-2 * time.Hour)
	rule := enabledRule(userID, created)
	listing := listingAt("RTX 4080", created.Add(time.Hour))

	prefs := immediateUTCPrefs(userID)
	prefs.Frequency = model.FrequencyDailyDigest

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)
	f.listings.On("ListCreatedAfter", mock.Anything, created, 100).Return([]model.Listing{listing}, nil)
	f.prefs.On("GetOrDefault", mock.Anything, userID).Return(prefs, nil)
	f.records.On("Exists", mock.Anything, rule.ID, listing.ID, model.ChannelEmail).Return(false, nil)
	f.digests.On("Defer", mock.Anything, userID, model.CadenceDaily, rule.ID, rule.Name, mock.Anything).Return(nil)
	f.rules.On("AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt).Return(nil)

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.digests.AssertNumberOfCalls(t, "Defer", 1)
	f.rules.AssertCalled(t, "AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt)
}

func TestRuleCheckSkipsDegenerateRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rule := model.AlertRule{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "everything",
		Enabled:   true,
		Channels:  []string{"email"},
		CreatedAt: time.Now().Add(-time.Hour),
	}

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	f.listings.AssertNotCalled(t, "ListCreatedAfter", mock.Anything, mock.Anything, mock.Anything)
	f.rules.AssertNotCalled(t, "AdvanceWatermark", mock.Anything, mock.Anything, mock.Anything)
}

func TestRuleCheckAdvancesPastNonMatchingListings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()
	created := time.Now().Add(-2 * time.Hour)
	rule := enabledRule(userID, created)
	miss := listingAt("office chair", created.Add(time.Hour))

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)
	f.listings.On("ListCreatedAfter", mock.Anything, created, 100).Return([]model.Listing{miss}, nil)
	f.prefs.On("GetOrDefault", mock.Anything, userID).Return(immediateUTCPrefs(userID), nil)
	f.rules.On("AdvanceWatermark", mock.Anything, rule.ID, miss.CreatedAt).Return(nil)

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.rules.AssertCalled(t, "AdvanceWatermark", mock.Anything, rule.ID, miss.CreatedAt)
}

func TestRuleCheckCountsDropWhenNoChannelAvailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := uuid.New()
	created := time.Now().Add(-2 * time.Hour)
	rule := enabledRule(userID, created)
	rule.Channels = nil // fall back to the user's enabled channels
	listing := listingAt("RTX 4080 like new", created.Add(time.Hour))

	prefs := immediateUTCPrefs(userID)
	prefs.EmailEnabled = false
	prefs.PushEnabled = false

	f.rules.On("ListEnabled", mock.Anything).Return([]model.AlertRule{rule}, nil)
	f.listings.On("ListCreatedAfter", mock.Anything, created, 100).Return([]model.Listing{listing}, nil)
	f.prefs.On("GetOrDefault", mock.Anything, userID).Return(prefs, nil)
	f.rules.On("AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt).Return(nil)

	require.NoError(t, f.engine.RunRuleCheck(context.Background()))

	// The match is settled as a drop: counted, dispatched nowhere, and the
	// watermark still advances past the listing.
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	f.digests.AssertNotCalled(t, "Defer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.rules.AssertCalled(t, "AdvanceWatermark", mock.Anything, rule.ID, listing.CreatedAt)

	m, ok := f.engine.Metrics().LastRun("rule_check")
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Matches)
	assert.Equal(t, int64(1), m.Dropped)
	assert.Equal(t, int64(0), m.Sent)
}

func TestRenderAlertKeepsFractionalDealScore(t *testing.T) {
	t.Parallel()

	listing := listingAt("RTX 4080 like new", time.Now())
	listing.DealScore = 0.8
	listing.Marketplace = "craigslist"

	c := renderAlert("gpu deals", &listing)
	assert.Contains(t, c.Body, "deal score 0.80")
}

func TestDigestFlushRunsUnderCadenceLock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.digests.On("FlushAll", mock.Anything, model.CadenceWeekly, mock.Anything).Return(nil)

	require.NoError(t, f.engine.RunDigestFlush(context.Background(), model.CadenceWeekly))

	assert.Equal(t, []int64{LockWeeklyDigest}, f.locks.acquired)
	f.digests.AssertNumberOfCalls(t, "FlushAll", 1)
}
