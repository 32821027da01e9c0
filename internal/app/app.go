// Package app assembles the engine from its parts so the api and engine
// binaries share one wiring path.
package app

import (
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/dealradar/backend/internal/config"
	"github.com/dealradar/backend/internal/digest"
	"github.com/dealradar/backend/internal/engine"
	"github.com/dealradar/backend/internal/notify"
	"github.com/dealradar/backend/internal/repository"
	"github.com/dealradar/backend/internal/scheduler"
)

// Options carries the externally provided transports. Email and SMS relays
// live outside this service; a nil sender leaves that channel unregistered.
type Options struct {
	EmailSender notify.EmailSender
	SMSSender   notify.SMSSender
}

// Repositories groups the data access layer for callers that also serve the
// HTTP API.
type Repositories struct {
	Rules     repository.AlertRuleRepositoryInterface
	Listings  repository.ListingRepositoryInterface
	Watchlist repository.WatchlistRepositoryInterface
	Prefs     repository.PreferenceRepositoryInterface
	Records   repository.NotificationRecordRepositoryInterface
	Digests   repository.DigestRepositoryInterface
	Users     repository.UserRepositoryInterface
	Push      repository.PushSubscriptionRepositoryInterface
	Locks     repository.JobLockRepositoryInterface
}

// NewRepositories builds the full repository set over one connection pool.
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Rules:     repository.NewAlertRuleRepository(db),
		Listings:  repository.NewListingRepository(db),
		Watchlist: repository.NewWatchlistRepository(db),
		Prefs:     repository.NewPreferenceRepository(db),
		Records:   repository.NewNotificationRecordRepository(db),
		Digests:   repository.NewDigestRepository(db),
		Users:     repository.NewUserRepository(db),
		Push:      repository.NewPushRepository(db),
		Locks:     repository.NewJobLockRepository(db),
	}
}

// BuildEngine wires adapters, dispatcher, digest aggregator and jobs.
func BuildEngine(cfg *config.Config, repos *Repositories, opts Options, log *slog.Logger) *engine.Engine {
	var adapters []notify.Adapter
	if wp := notify.NewWebPushAdapter(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, repos.Push); wp != nil {
		adapters = append(adapters, wp)
	}
	adapters = append(adapters, notify.NewChatWebhookAdapter(cfg.ChatWebhookTimeout))
	if email := notify.NewEmailAdapter(opts.EmailSender); email != nil {
		adapters = append(adapters, email)
	}
	if sms := notify.NewSMSAdapter(opts.SMSSender); sms != nil {
		adapters = append(adapters, sms)
	}

	dispatcher := notify.NewDispatcher(adapters, repos.Records, repos.Prefs, notify.DefaultRetryConfig(), log)
	targets := notify.NewTargetResolver(repos.Users, repos.Push)
	aggregator := digest.NewAggregator(repos.Digests, repos.Prefs, targets, dispatcher, log)

	return engine.New(cfg.Engine, engine.Deps{
		Rules:      repos.Rules,
		Listings:   repos.Listings,
		Watchlist:  repos.Watchlist,
		Prefs:      repos.Prefs,
		Records:    repos.Records,
		Locks:      repos.Locks,
		Targets:    targets,
		Dispatcher: dispatcher,
		Digests:    aggregator,
	}, log)
}

// BuildScheduler attaches the engine's jobs to their cron schedules.
func BuildScheduler(cfg *config.Config, eng *engine.Engine, log *slog.Logger) *scheduler.Scheduler {
	return scheduler.New(cfg.Engine, eng, log)
}
