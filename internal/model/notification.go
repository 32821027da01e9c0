package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dealradar/backend/pkg/timewindow"
)

// Channel is a delivery mechanism. The set is closed: adding a channel means
// adding a constant and an adapter, not branching on strings elsewhere.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
	ChannelPush  Channel = "push"
)

// AllChannels lists every known channel.
var AllChannels = []Channel{ChannelEmail, ChannelSMS, ChannelChat, ChannelPush}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelChat, ChannelPush:
		return true
	}
	return false
}

// Frequency is a user's delivery mode.
type Frequency string

const (
	FrequencyImmediate   Frequency = "immediate"
	FrequencyDailyDigest Frequency = "daily_digest"
	FrequencyWeekly      Frequency = "weekly_digest"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDailyDigest, FrequencyWeekly:
		return true
	}
	return false
}

// Cadence identifies a digest accumulation period.
type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// DigestCadence maps a frequency to the cadence its deferred matches
// accumulate under. Immediate-mode deferrals (quiet hours, rate limit) go to
// the daily catch-up queue.
func (f Frequency) DigestCadence() Cadence {
	if f == FrequencyWeekly {
		return CadenceWeekly
	}
	return CadenceDaily
}

// NotificationPreference holds a user's delivery policy. The engine treats it
// as read-only apart from the rolling daily counter, which is keyed by the
// calendar day in the user's zone so the reset is implicit in the key change.
type NotificationPreference struct {
	UserID          uuid.UUID             `db:"user_id" json:"userId"`
	EmailEnabled    bool                  `db:"email_enabled" json:"emailEnabled"`
	SMSEnabled      bool                  `db:"sms_enabled" json:"smsEnabled"`
	ChatEnabled     bool                  `db:"chat_enabled" json:"chatEnabled"`
	PushEnabled     bool                  `db:"push_enabled" json:"pushEnabled"`
	ChatWebhookURL  *string               `db:"chat_webhook_url" json:"chatWebhookUrl,omitempty"`
	Frequency       Frequency             `db:"frequency" json:"frequency"`
	QuietHoursStart *timewindow.TimeOfDay `db:"quiet_hours_start" json:"quietHoursStart,omitempty"`
	QuietHoursEnd   *timewindow.TimeOfDay `db:"quiet_hours_end" json:"quietHoursEnd,omitempty"`
	Timezone        string                `db:"timezone" json:"timezone"`
	MaxPerDay       int                   `db:"max_per_day" json:"maxPerDay"`
	DailyCount      int                   `db:"daily_count" json:"dailyCount"`
	DailyCountDay   string                `db:"daily_count_day" json:"dailyCountDay"`
	Categories      pq.StringArray        `db:"categories" json:"categories"`
	CreatedAt       time.Time             `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time             `db:"updated_at" json:"updatedAt"`
}

// DefaultPreference returns the policy applied to users who never saved one.
func DefaultPreference(userID uuid.UUID) *NotificationPreference {
	return &NotificationPreference{
		UserID:       userID,
		EmailEnabled: true,
		PushEnabled:  true,
		Frequency:    FrequencyImmediate,
		MaxPerDay:    20,
	}
}

// ChannelEnabled reports whether the user has opted into c.
func (p *NotificationPreference) ChannelEnabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelChat:
		return p.ChatEnabled
	case ChannelPush:
		return p.PushEnabled
	}
	return false
}

// EnabledChannels returns the channels the user has opted into.
func (p *NotificationPreference) EnabledChannels() []Channel {
	var channels []Channel
	for _, c := range AllChannels {
		if p.ChannelEnabled(c) {
			channels = append(channels, c)
		}
	}
	return channels
}

// QuietWindow returns the configured quiet-hours window, or false when quiet
// hours are not set.
func (p *NotificationPreference) QuietWindow() (timewindow.Window, bool) {
	if p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return timewindow.Window{}, false
	}
	return timewindow.Window{Start: *p.QuietHoursStart, End: *p.QuietHoursEnd}, true
}

// AllowsCategory applies the optional category allow-list.
func (p *NotificationPreference) AllowsCategory(category string) bool {
	if len(p.Categories) == 0 {
		return true
	}
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// NotificationSource distinguishes what produced a notification.
type NotificationSource string

const (
	SourceRule      NotificationSource = "rule"
	SourceWatchlist NotificationSource = "watchlist"
	SourceDigest    NotificationSource = "digest"
)

// DeliveryOutcome is the terminal state of one channel attempt.
type DeliveryOutcome string

const (
	OutcomeSent             DeliveryOutcome = "sent"
	OutcomeFailed           DeliveryOutcome = "failed"            // retries exhausted
	OutcomePermanentFailure DeliveryOutcome = "permanent_failure" // not retryable
)

// NotificationRecord is the durable history entry and the dedup source of
// truth: at most one non-superseded record exists per
// (source_id, listing_id, channel). Append-only; a retry writes a new record
// and marks the old one superseded.
type NotificationRecord struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	UserID       uuid.UUID          `db:"user_id" json:"userId"`
	SourceType   NotificationSource `db:"source_type" json:"sourceType"`
	SourceID     uuid.UUID          `db:"source_id" json:"sourceId"`
	ListingID    uuid.UUID          `db:"listing_id" json:"listingId"`
	Channel      Channel            `db:"channel" json:"channel"`
	Outcome      DeliveryOutcome    `db:"outcome" json:"outcome"`
	Error        *string            `db:"error" json:"error,omitempty"`
	SupersededBy *uuid.UUID         `db:"superseded_by" json:"supersededBy,omitempty"`
	SentAt       time.Time          `db:"sent_at" json:"sentAt"`
}
