// Package digest accumulates deferred matches and flushes them once per
// cadence period as a single aggregated notification.
package digest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
	"github.com/dealradar/backend/pkg/timewindow"
)

// digestNS namespaces the deterministic source IDs digests are deduplicated
// under. Never change it: a new namespace would re-send flushed periods.
var digestNS = uuid.MustParse("7b9f4a52-31c8-4e0d-9d6a-2f8e5b1c0a44")

type Store interface {
	Enqueue(ctx context.Context, entry *model.DigestEntry) (bool, error)
	ListUsersWithPending(ctx context.Context, cadence model.Cadence) ([]uuid.UUID, error)
	ListPending(ctx context.Context, userID uuid.UUID, cadence model.Cadence, before time.Time) ([]model.DigestEntry, error)
	TryMarkFlushed(ctx context.Context, userID uuid.UUID, cadence model.Cadence, periodKey string) (bool, error)
	DeleteEntries(ctx context.Context, ids []int64) error
}

type PreferenceStore interface {
	GetOrDefault(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
}

type Targets interface {
	Resolve(ctx context.Context, userID uuid.UUID, prefs *model.NotificationPreference, channels []model.Channel) (notify.Target, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, del notify.Delivery) notify.Result
}

// Aggregator owns the digest queue: deferred matches go in via Defer, and
// the scheduled flush drains each user's queue at most once per period.
type Aggregator struct {
	store      Store
	prefs      PreferenceStore
	targets    Targets
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewAggregator(store Store, prefs PreferenceStore, targets Targets, dispatcher Dispatcher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:      store,
		prefs:      prefs,
		targets:    targets,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Defer snapshots a match into the user's digest queue. Re-deferring the
// same (source, listing) pair is a no-op. Watchlist alerts pass their item
// ID and a synthetic name.
func (a *Aggregator) Defer(ctx context.Context, userID uuid.UUID, cadence model.Cadence, ruleID uuid.UUID, ruleName string, listing *model.Listing) error {
	entry := &model.DigestEntry{
		UserID:           userID,
		Cadence:          cadence,
		RuleID:           ruleID,
		RuleName:         ruleName,
		ListingID:        listing.ID,
		ListingTitle:     listing.Title,
		ListingPrice:     listing.Price,
		ListingURL:       listing.URL,
		DealScore:        listing.DealScore,
		ListingCreatedAt: listing.CreatedAt,
	}
	_, err := a.store.Enqueue(ctx, entry)
	return err
}

// FlushAll flushes every user with pending entries for the cadence. One
// user's failure never blocks the rest.
func (a *Aggregator) FlushAll(ctx context.Context, cadence model.Cadence, now time.Time) error {
	userIDs, err := a.store.ListUsersWithPending(ctx, cadence)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.FlushUser(ctx, userID, cadence, now); err != nil {
			a.logger.Error("digest flush failed",
				slog.String("user_id", userID.String()),
				slog.String("cadence", string(cadence)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// FlushUser flushes one user's queue for the period containing now. The
// period marker is claimed before anything is sent, so a concurrent or
// repeated flush of the same period sends nothing: at-most-once wins over
// at-least-once here. Entries enqueued after the cutoff stay queued for the
// next period.
func (a *Aggregator) FlushUser(ctx context.Context, userID uuid.UUID, cadence model.Cadence, now time.Time) error {
	prefs, err := a.prefs.GetOrDefault(ctx, userID)
	if err != nil {
		return err
	}

	loc := timewindow.LoadLocation(prefs.Timezone)
	periodKey := PeriodKey(cadence, now, loc)

	claimed, err := a.store.TryMarkFlushed(ctx, userID, cadence, periodKey)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	entries, err := a.store.ListPending(ctx, userID, cadence, now)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	channels := prefs.EnabledChannels()
	if len(channels) == 0 {
		// Nothing to deliver on; keep the entries for a period where the
		// user has re-enabled a channel.
		a.logger.Warn("digest flush skipped, no enabled channel",
			slog.String("user_id", userID.String()),
			slog.String("cadence", string(cadence)),
		)
		return nil
	}

	target, err := a.targets.Resolve(ctx, userID, prefs, channels)
	if err != nil {
		return err
	}

	del := notify.Delivery{
		UserID:     userID,
		SourceType: model.SourceDigest,
		SourceID:   SourceID(userID, cadence, periodKey),
		ListingID:  uuid.Nil,
		Channels:   channels,
		Target:     target,
		Content:    Render(cadence, entries),
		// The cap already deferred these matches once; digests bypass it.
		CountAgainstLimit: false,
	}

	res := a.dispatcher.Dispatch(ctx, del)
	if !res.AllRecorded {
		// Leave the entries in place; the next period's flush retries them.
		return nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := a.store.DeleteEntries(ctx, ids); err != nil {
		return err
	}

	a.logger.Info("digest flushed",
		slog.String("user_id", userID.String()),
		slog.String("cadence", string(cadence)),
		slog.String("period", periodKey),
		slog.Int("entries", len(entries)),
	)
	return nil
}

// PeriodKey identifies the cadence period containing t in the user's zone.
func PeriodKey(cadence model.Cadence, t time.Time, loc *time.Location) string {
	if cadence == model.CadenceWeekly {
		return timewindow.WeekKey(t, loc)
	}
	return timewindow.DayKey(t, loc)
}

// SourceID derives the deterministic notification source ID for one flushed
// period, so the delivery dedup constraint also covers digests.
func SourceID(userID uuid.UUID, cadence model.Cadence, periodKey string) uuid.UUID {
	return uuid.NewSHA1(digestNS, []byte(userID.String()+"|"+string(cadence)+"|"+periodKey))
}
