package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/model"
)

// RecordStore persists terminal channel outcomes; the repository
// implementation is idempotent per (source, listing, channel).
type RecordStore interface {
	Record(ctx context.Context, rec *model.NotificationRecord) (bool, error)
}

// CounterStore atomically consumes daily-cap slots.
type CounterStore interface {
	TryIncrementDaily(ctx context.Context, userID uuid.UUID, localDay string, max int) (bool, error)
}

// Delivery is one match (or one rendered digest) bound for a set of channels.
type Delivery struct {
	UserID     uuid.UUID
	SourceType model.NotificationSource
	SourceID   uuid.UUID
	ListingID  uuid.UUID
	Channels   []model.Channel
	Target     Target
	Content    Content

	// Daily-cap accounting. One slot is consumed per channel attempted.
	// Digest flushes set CountAgainstLimit false: the cap is what deferred
	// them in the first place. MaxPerDay 0 means the user is uncapped.
	CountAgainstLimit bool
	LocalDay          string
	MaxPerDay         int
}

// ChannelResult is the terminal state of one channel of a delivery.
type ChannelResult struct {
	Channel  model.Channel
	Outcome  model.DeliveryOutcome
	Deferred bool // lost the cap race; caller re-defers the match
	Err      error
}

// Result aggregates a delivery's channel outcomes. AllRecorded is true only
// when every non-deferred channel outcome was durably recorded; the rule
// watermark must not advance without it.
type Result struct {
	Results     []ChannelResult
	Deferred    []model.Channel
	AllRecorded bool
}

// Dispatcher sends deliveries through channel adapters under the bounded
// retry policy and records every terminal outcome. One bad channel never
// stalls the others.
type Dispatcher struct {
	adapters map[model.Channel]Adapter
	records  RecordStore
	counters CounterStore
	retry    RetryConfig
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given adapters.
func NewDispatcher(adapters []Adapter, records RecordStore, counters CounterStore, retry RetryConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	byChannel := make(map[model.Channel]Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}
	return &Dispatcher{
		adapters: byChannel,
		records:  records,
		counters: counters,
		retry:    retry,
		logger:   logger,
	}
}

// Dispatch delivers on every requested channel independently.
func (d *Dispatcher) Dispatch(ctx context.Context, del Delivery) Result {
	res := Result{AllRecorded: true}

	for _, ch := range del.Channels {
		adapter, ok := d.adapters[ch]
		if !ok {
			// A channel the user asked for but the deployment cannot serve.
			// Terminal and visible in history so the misconfiguration is not
			// silent.
			cr := d.record(ctx, del, ch, Permanent(ErrNotConfigured))
			res.Results = append(res.Results, cr)
			if cr.Err != nil {
				res.AllRecorded = false
			}
			continue
		}

		// MaxPerDay 0 disables the cap; the store's conditional increment
		// would never grant a slot with max 0, so it must not be consulted.
		if del.CountAgainstLimit && del.MaxPerDay > 0 {
			allowed, err := d.counters.TryIncrementDaily(ctx, del.UserID, del.LocalDay, del.MaxPerDay)
			if err != nil {
				d.logger.Error("daily counter increment failed",
					slog.String("user_id", del.UserID.String()),
					slog.String("channel", string(ch)),
					slog.String("error", err.Error()),
				)
				res.AllRecorded = false
				res.Results = append(res.Results, ChannelResult{Channel: ch, Err: err})
				continue
			}
			if !allowed {
				// Lost the cap race against a concurrent job; re-defer.
				res.Deferred = append(res.Deferred, ch)
				res.Results = append(res.Results, ChannelResult{Channel: ch, Deferred: true})
				continue
			}
		}

		outcome := SendWithRetry(ctx, d.retry, d.logger, adapter, del.Target, del.Content)
		cr := d.record(ctx, del, ch, outcome)
		res.Results = append(res.Results, cr)
		if cr.Err != nil {
			res.AllRecorded = false
		}
	}

	return res
}

// record maps a send outcome to a durable notification record.
func (d *Dispatcher) record(ctx context.Context, del Delivery, ch model.Channel, outcome Outcome) ChannelResult {
	rec := &model.NotificationRecord{
		UserID:     del.UserID,
		SourceType: del.SourceType,
		SourceID:   del.SourceID,
		ListingID:  del.ListingID,
		Channel:    ch,
	}

	switch outcome.Status {
	case StatusOK:
		rec.Outcome = model.OutcomeSent
	case StatusPermanent:
		rec.Outcome = model.OutcomePermanentFailure
	default:
		rec.Outcome = model.OutcomeFailed
	}
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		rec.Error = &msg
	}

	if _, err := d.records.Record(ctx, rec); err != nil {
		d.logger.Error("recording notification outcome failed",
			slog.String("user_id", del.UserID.String()),
			slog.String("channel", string(ch)),
			slog.String("error", err.Error()),
		)
		return ChannelResult{Channel: ch, Outcome: rec.Outcome, Err: err}
	}

	if rec.Outcome != model.OutcomeSent {
		d.logger.Warn("channel delivery ended in failure",
			slog.String("user_id", del.UserID.String()),
			slog.String("channel", string(ch)),
			slog.String("outcome", string(rec.Outcome)),
			slog.String("error", errString(outcome.Err)),
		)
	}

	return ChannelResult{Channel: ch, Outcome: rec.Outcome}
}
