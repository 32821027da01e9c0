package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealradar/backend/internal/logger"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
	"github.com/dealradar/backend/pkg/timewindow"
)

func (e *Engine) priceDropCheck(ctx context.Context) error {
	started := e.now()
	log := logger.FromContext(ctx)

	items, err := e.watchlist.ListActiveWithThreshold(ctx)
	if err != nil {
		return fmt.Errorf("listing watchlist items: %w", err)
	}
	log.Info("price drop check started", slog.Int("items", len(items)))

	c := &counters{}
	runWorkers(ctx, e.cfg.Workers, items, func(ctx context.Context, item model.WatchlistItem) {
		ictx, cancel := e.itemCtx(ctx)
		defer cancel()
		c.items.Add(1)
		e.checkWatchlistItem(ictx, &item, started, c)
	})

	m := c.metrics("price_drop_check", started)
	e.metrics.Record(m)
	log.Info("price drop check finished",
		slog.Int64("items", m.Items),
		slog.Int64("triggered", m.Matches),
		slog.Int64("sent", m.Sent),
		slog.Int64("errors", m.Errors),
		slog.String("duration", m.Duration),
	)
	return nil
}

// checkWatchlistItem fires the one-shot alert when the listing's current
// price is at or below the item's threshold. The alert_sent flip is claimed
// before any delivery work, so two overlapping ticks can never both send.
func (e *Engine) checkWatchlistItem(ctx context.Context, item *model.WatchlistItem, now time.Time, c *counters) {
	log := logger.FromContext(ctx).With(
		slog.String("watchlist_id", item.ID.String()),
		slog.String("user_id", item.UserID.String()),
	)

	if item.PriceThreshold == nil {
		return
	}

	price, err := e.listings.CurrentPrice(ctx, item.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Listing withdrawn; nothing to alert on.
			return
		}
		log.Error("price lookup failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}
	if price.GreaterThan(*item.PriceThreshold) {
		return
	}

	claimed, err := e.watchlist.MarkAlertSent(ctx, item.ID)
	if err != nil {
		log.Error("claiming watchlist alert failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}
	if !claimed {
		return
	}
	c.matches.Add(1)

	listing, err := e.listings.GetByID(ctx, item.ListingID)
	if err != nil {
		log.Error("listing fetch failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}

	prefs, err := e.prefs.GetOrDefault(ctx, item.UserID)
	if err != nil {
		log.Error("preference fetch failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}

	alertName := "Price drop: " + listing.Title
	decision := notify.Route(prefs, prefs.EnabledChannels(), listing.Category, now)
	switch decision.Kind {
	case notify.DecisionDrop:
		log.Info("price drop alert dropped", slog.String("reason", decision.Reason))
		c.dropped.Add(1)
		return

	case notify.DecisionDefer:
		if err := e.digests.Defer(ctx, item.UserID, prefs.Frequency.DigestCadence(), item.ID, alertName, listing); err != nil {
			log.Error("digest enqueue failed", slog.String("error", err.Error()))
			c.errors.Add(1)
		} else {
			c.deferred.Add(1)
		}
		return
	}

	target, err := e.targets.Resolve(ctx, item.UserID, prefs, decision.Channels)
	if err != nil {
		log.Error("target resolution failed", slog.String("error", err.Error()))
		c.errors.Add(1)
		return
	}

	loc := timewindow.LoadLocation(prefs.Timezone)
	res := e.dispatcher.Dispatch(ctx, notify.Delivery{
		UserID:     item.UserID,
		SourceType: model.SourceWatchlist,
		SourceID:   item.ID,
		ListingID:  listing.ID,
		Channels:   decision.Channels,
		Target:     target,
		Content: notify.Content{
			Subject: alertName,
			Body: fmt.Sprintf("Now %s, at or below your %s threshold",
				price.StringFixed(2), item.PriceThreshold.StringFixed(2)),
			URL: listing.URL,
		},
		CountAgainstLimit: true,
		LocalDay:          timewindow.DayKey(now, loc),
		MaxPerDay:         prefs.MaxPerDay,
	})

	for _, r := range res.Results {
		if r.Outcome == model.OutcomeSent {
			c.sent.Add(1)
		}
	}
	if len(res.Deferred) > 0 {
		if err := e.digests.Defer(ctx, item.UserID, model.CadenceDaily, item.ID, alertName, listing); err != nil {
			log.Error("digest enqueue failed", slog.String("error", err.Error()))
			c.errors.Add(1)
		} else {
			c.deferred.Add(1)
		}
	}
}
