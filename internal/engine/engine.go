// Package engine runs the periodic alert jobs: rule checks over the listing
// stream, watchlist price-drop checks, and digest flushes. Every job runs
// under a cross-process advisory lock so overlapping instances skip instead
// of double-sending.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/config"
	"github.com/dealradar/backend/internal/logger"
	"github.com/dealradar/backend/internal/matcher"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
	"github.com/dealradar/backend/internal/repository"
)

// Advisory lock keys, one per job type. Fixed forever: changing a key lets
// two deployments run the same job concurrently during a rollout.
const (
	LockRuleCheck    int64 = 0x6465616C0001
	LockPriceDrop    int64 = 0x6465616C0002
	LockDailyDigest  int64 = 0x6465616C0003
	LockWeeklyDigest int64 = 0x6465616C0004
)

// Dispatcher delivers one match across its channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, del notify.Delivery) notify.Result
}

// DigestQueue accepts deferred matches and flushes accumulated ones.
type DigestQueue interface {
	Defer(ctx context.Context, userID uuid.UUID, cadence model.Cadence, ruleID uuid.UUID, ruleName string, listing *model.Listing) error
	FlushAll(ctx context.Context, cadence model.Cadence, now time.Time) error
}

// Targets resolves a user's delivery coordinates.
type Targets interface {
	Resolve(ctx context.Context, userID uuid.UUID, prefs *model.NotificationPreference, channels []model.Channel) (notify.Target, error)
}

// Engine wires the repositories, matcher, router and dispatcher into the
// three periodic jobs.
type Engine struct {
	cfg       config.EngineConfig
	rules     repository.AlertRuleRepositoryInterface
	listings  repository.ListingRepositoryInterface
	watchlist repository.WatchlistRepositoryInterface
	prefs     repository.PreferenceRepositoryInterface
	records   repository.NotificationRecordRepositoryInterface
	locks     repository.JobLockRepositoryInterface

	targets    Targets
	dispatcher Dispatcher
	digests    DigestQueue

	policy  matcher.DegeneratePolicy
	metrics *MetricsCollector
	logger  *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Rules     repository.AlertRuleRepositoryInterface
	Listings  repository.ListingRepositoryInterface
	Watchlist repository.WatchlistRepositoryInterface
	Prefs     repository.PreferenceRepositoryInterface
	Records   repository.NotificationRecordRepositoryInterface
	Locks     repository.JobLockRepositoryInterface

	Targets    Targets
	Dispatcher Dispatcher
	Digests    DigestQueue
}

func New(cfg config.EngineConfig, deps Deps, log *slog.Logger) *Engine {
	if log == nil {
		log = logger.Logger()
	}
	return &Engine{
		cfg:        cfg,
		rules:      deps.Rules,
		listings:   deps.Listings,
		watchlist:  deps.Watchlist,
		prefs:      deps.Prefs,
		records:    deps.Records,
		locks:      deps.Locks,
		targets:    deps.Targets,
		dispatcher: deps.Dispatcher,
		digests:    deps.Digests,
		policy:     matcher.ParsePolicy(cfg.DegenerateRulePolicy),
		metrics:    NewMetricsCollector(),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Metrics exposes last-run stats for the health endpoint.
func (e *Engine) Metrics() *MetricsCollector { return e.metrics }

// RunRuleCheck evaluates every enabled rule against listings past its
// watermark.
func (e *Engine) RunRuleCheck(ctx context.Context) error {
	return e.withLock(ctx, "rule_check", LockRuleCheck, e.ruleCheck)
}

// RunPriceDropCheck fires one-shot alerts for watchlist items whose listing
// price crossed the threshold.
func (e *Engine) RunPriceDropCheck(ctx context.Context) error {
	return e.withLock(ctx, "price_drop_check", LockPriceDrop, e.priceDropCheck)
}

// RunDigestFlush drains every user's pending digest queue for the cadence.
func (e *Engine) RunDigestFlush(ctx context.Context, cadence model.Cadence) error {
	job, key := "daily_digest_flush", LockDailyDigest
	if cadence == model.CadenceWeekly {
		job, key = "weekly_digest_flush", LockWeeklyDigest
	}
	return e.withLock(ctx, job, key, func(ctx context.Context) error {
		started := e.now()
		err := e.digests.FlushAll(ctx, cadence, started)
		e.metrics.Record(JobMetrics{
			Job:        job,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Duration:   time.Since(started).String(),
		})
		return err
	})
}

// withLock runs fn under the job's advisory lock and tick timeout. A held
// lock means another instance is mid-tick; skipping is the correct outcome,
// not an error.
func (e *Engine) withLock(ctx context.Context, job string, key int64, fn func(context.Context) error) error {
	release, acquired, err := e.locks.TryAcquire(ctx, key)
	if err != nil {
		return err
	}
	if !acquired {
		e.logger.Info("job skipped, lock held elsewhere", slog.String("job", job))
		e.metrics.Record(JobMetrics{Job: job, StartedAt: e.now(), FinishedAt: e.now(), Skipped: true})
		return nil
	}
	defer release()

	ctx = logger.WithJob(ctx, job)
	if e.cfg.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TickTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// itemCtx bounds one rule or watchlist item within a tick.
func (e *Engine) itemCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.ItemTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.ItemTimeout)
	}
	return context.WithCancel(ctx)
}
