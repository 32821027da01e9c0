package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealradar/backend/internal/logger"
	"github.com/dealradar/backend/internal/matcher"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
	"github.com/dealradar/backend/pkg/timewindow"
)

func (e *Engine) ruleCheck(ctx context.Context) error {
	started := e.now()
	log := logger.FromContext(ctx)

	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled rules: %w", err)
	}
	log.Info("rule check started", slog.Int("rules", len(rules)))

	c := &counters{}
	runWorkers(ctx, e.cfg.Workers, rules, func(ctx context.Context, rule model.AlertRule) {
		ictx, cancel := e.itemCtx(ctx)
		defer cancel()
		c.items.Add(1)
		e.checkRule(ictx, &rule, started, c)
	})

	m := c.metrics("rule_check", started)
	e.metrics.Record(m)
	log.Info("rule check finished",
		slog.Int64("rules", m.Items),
		slog.Int64("matches", m.Matches),
		slog.Int64("sent", m.Sent),
		slog.Int64("deferred", m.Deferred),
		slog.Int64("dropped", m.Dropped),
		slog.Int64("errors", m.Errors),
		slog.String("duration", m.Duration),
	)
	return nil
}

// checkRule evaluates one rule against listings newer than its watermark.
// Listings come back oldest first; the watermark only advances past a
// listing once every obligation it created is durable, so a crash mid-rule
// replays from the first unrecorded listing and the delivery constraint
// absorbs the overlap.
func (e *Engine) checkRule(ctx context.Context, rule *model.AlertRule, now time.Time, c *counters) {
	log := logger.FromContext(ctx).With(
		slog.String("rule_id", rule.ID.String()),
		slog.String("user_id", rule.UserID.String()),
	)

	if err := matcher.Validate(rule); err != nil {
		log.Warn("skipping invalid rule", slog.String("error", err.Error()))
		return
	}
	if matcher.IsDegenerate(rule) && e.policy == matcher.DegenerateSkip {
		log.Warn("skipping rule with no positive filters")
		return
	}

	since := rule.CreatedAt
	if rule.LastTriggeredAt != nil {
		since = *rule.LastTriggeredAt
	}

	listings, err := e.listings.ListCreatedAfter(ctx, since, e.cfg.ListingBatchSize)
	if err != nil {
		log.Error("listing fetch failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}
	if len(listings) == 0 {
		return
	}

	prefs, err := e.prefs.GetOrDefault(ctx, rule.UserID)
	if err != nil {
		log.Error("preference fetch failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}

	requested := rule.RequestedChannels()
	if len(requested) == 0 {
		requested = prefs.EnabledChannels()
	}
	loc := timewindow.LoadLocation(prefs.Timezone)

	watermark := since
	for i := range listings {
		listing := &listings[i]

		if matcher.Matches(rule, listing) {
			c.matches.Add(1)
			if !e.deliverMatch(ctx, log, rule, listing, prefs, requested, now, loc, c) {
				// This listing's outcome is not durable yet; stop here so
				// the next tick re-evaluates it.
				break
			}
		}
		watermark = listing.CreatedAt
	}

	if watermark.After(since) {
		if err := e.rules.AdvanceWatermark(ctx, rule.ID, watermark); err != nil {
			log.Error("watermark advance failed", slog.String("error", err.Error()))
			c.errors.Add(1)
		}
	}
}

// deliverMatch routes and dispatches one (rule, listing) match. It returns
// true once the match is settled: delivered with recorded outcomes, durably
// queued for a digest, or legitimately dropped.
func (e *Engine) deliverMatch(ctx context.Context, log *slog.Logger, rule *model.AlertRule, listing *model.Listing, prefs *model.NotificationPreference, requested []model.Channel, now time.Time, loc *time.Location, c *counters) bool {
	// No channel to deliver on, neither from the rule nor from the user's
	// preferences. Dropping is settled, but never silent.
	if len(requested) == 0 {
		log.Info("match dropped",
			slog.String("listing_id", listing.ID.String()),
			slog.String("reason", notify.ReasonNoEnabledChannel),
		)
		c.dropped.Add(1)
		return true
	}

	// Drop channels that already hold a terminal record for this pair, so a
	// replayed listing only fills the gaps.
	pending := make([]model.Channel, 0, len(requested))
	for _, ch := range requested {
		done, err := e.records.Exists(ctx, rule.ID, listing.ID, ch)
		if err != nil {
			log.Error("dedup lookup failed", slog.String("error", err.Error()))
			c.errors.Add(1)
			return false
		}
		if !done {
			pending = append(pending, ch)
		}
	}
	if len(pending) == 0 {
		return true
	}

	decision := notify.Route(prefs, pending, listing.Category, now)
	switch decision.Kind {
	case notify.DecisionDrop:
		log.Info("match dropped",
			slog.String("listing_id", listing.ID.String()),
			slog.String("reason", decision.Reason),
		)
		c.dropped.Add(1)
		return true

	case notify.DecisionDefer:
		cadence := prefs.Frequency.DigestCadence()
		if err := e.digests.Defer(ctx, rule.UserID, cadence, rule.ID, rule.Name, listing); err != nil {
			log.Error("digest enqueue failed", slog.String("error", err.Error()))
			c.errors.Add(1)
			return false
		}
		c.deferred.Add(1)
		return true
	}

	target, err := e.targets.Resolve(ctx, rule.UserID, prefs, decision.Channels)
	if err != nil {
		log.Error("target resolution failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return false
	}

	res := e.dispatcher.Dispatch(ctx, notify.Delivery{
		UserID:            rule.UserID,
		SourceType:        model.SourceRule,
		SourceID:          rule.ID,
		ListingID:         listing.ID,
		Channels:          decision.Channels,
		Target:            target,
		Content:           renderAlert(rule.Name, listing),
		CountAgainstLimit: true,
		LocalDay:          timewindow.DayKey(now, loc),
		MaxPerDay:         prefs.MaxPerDay,
	})

	for _, r := range res.Results {
		if r.Outcome == model.OutcomeSent {
			c.sent.Add(1)
		}
	}

	// Channels that lost the daily-cap race fall back to the catch-up queue.
	if len(res.Deferred) > 0 {
		if err := e.digests.Defer(ctx, rule.UserID, model.CadenceDaily, rule.ID, rule.Name, listing); err != nil {
			log.Error("digest enqueue failed", slog.String("error", err.Error()))
			c.errors.Add(1)
			return false
		}
		c.deferred.Add(1)
	}

	return res.AllRecorded
}

// renderAlert builds the immediate-notification payload for a rule match.
func renderAlert(ruleName string, listing *model.Listing) notify.Content {
	return notify.Content{
		Subject: "Deal alert: " + ruleName,
		Body: fmt.Sprintf("%s for %s on %s (deal score %.2f)",
			listing.Title, listing.Price.StringFixed(2), listing.Marketplace, listing.DealScore),
		URL: listing.URL,
	}
}
