// Package notify decides whether, when, and how a match is delivered:
// routing (quiet hours, daily cap, channel selection), bounded-retry
// dispatch, and the uniform channel adapter contract.
package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/model"
)

// SendStatus classifies one adapter call.
type SendStatus string

const (
	StatusOK        SendStatus = "ok"
	StatusRetryable SendStatus = "retryable_error"
	StatusPermanent SendStatus = "permanent_error"
)

// Outcome is the result of one adapter send.
type Outcome struct {
	Status SendStatus
	Err    error
}

// OK is the successful outcome.
func OK() Outcome { return Outcome{Status: StatusOK} }

// Retryable wraps a transient failure.
func Retryable(err error) Outcome { return Outcome{Status: StatusRetryable, Err: err} }

// Permanent wraps a failure that retrying cannot fix.
func Permanent(err error) Outcome { return Outcome{Status: StatusPermanent, Err: err} }

// Common adapter errors.
var (
	ErrNotConfigured = errors.New("channel not configured")
	ErrNoTarget      = errors.New("no delivery target for channel")
	ErrEndpointGone  = errors.New("delivery endpoint gone")
	ErrRateLimited   = errors.New("rate limited by provider")
	ErrProviderDown  = errors.New("provider unavailable")
)

// Target carries a user's delivery coordinates for all channels.
type Target struct {
	UserID            uuid.UUID
	Email             string
	Phone             string
	WebhookURL        string
	PushSubscriptions []model.PushSubscription
}

// Content is the rendered payload handed to a channel adapter.
type Content struct {
	Subject string
	Body    string
	URL     string // deep link into the product
}

// Adapter is the uniform send contract every delivery channel implements.
// Implementations must honor ctx and classify their own failures; the
// dispatcher owns the retry policy.
type Adapter interface {
	Channel() model.Channel
	Send(ctx context.Context, target Target, content Content) Outcome
}

// EmailSender is the injected transport for the email channel; the actual
// mail relay lives outside this service.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SMSSender is the injected transport for the SMS channel.
type SMSSender interface {
	Send(phone, message string) error
}
