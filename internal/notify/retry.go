package notify

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig holds the bounded-retry policy applied around adapter sends.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the default policy: 3 attempts with 1s/2s/4s
// backoff plus jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// SendWithRetry drives an adapter send under the retry policy. Only
// retryable outcomes are retried; a permanent outcome returns immediately and
// exhausting attempts returns the last retryable outcome. Context
// cancellation surfaces as a retryable outcome so a hung channel is recorded
// as transient, not permanent.
func SendWithRetry(ctx context.Context, cfg RetryConfig, logger *slog.Logger, adapter Adapter, target Target, content Content) Outcome {
	if logger == nil {
		logger = slog.Default()
	}

	var last Outcome
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Retryable(ctx.Err())
		default:
		}

		last = adapter.Send(ctx, target, content)
		if last.Status != StatusRetryable {
			return last
		}

		logger.Warn("channel send failed",
			slog.String("channel", string(adapter.Channel())),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.String("error", errString(last.Err)),
		)

		// Don't wait after the last attempt
		if attempt < cfg.MaxAttempts {
			// Add jitter to prevent thundering herd
			jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
			select {
			case <-ctx.Done():
				return Retryable(ctx.Err())
			case <-time.After(delay + jitter):
			}

			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return last
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
