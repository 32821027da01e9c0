package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DigestEntry is a deferred match waiting for a cadence flush. Listing
// attributes are snapshotted at enqueue time so a rendered digest does not
// shift under later listing edits. Unique per
// (user, cadence, rule, listing) so re-deferring the same match is a no-op.
type DigestEntry struct {
	ID               int64           `db:"id" json:"id"`
	UserID           uuid.UUID       `db:"user_id" json:"userId"`
	Cadence          Cadence         `db:"cadence" json:"cadence"`
	RuleID           uuid.UUID       `db:"rule_id" json:"ruleId"`
	RuleName         string          `db:"rule_name" json:"ruleName"`
	ListingID        uuid.UUID       `db:"listing_id" json:"listingId"`
	ListingTitle     string          `db:"listing_title" json:"listingTitle"`
	ListingPrice     decimal.Decimal `db:"listing_price" json:"listingPrice"`
	ListingURL       string          `db:"listing_url" json:"listingUrl"`
	DealScore        float64         `db:"deal_score" json:"dealScore"`
	ListingCreatedAt time.Time       `db:"listing_created_at" json:"listingCreatedAt"`
	EnqueuedAt       time.Time       `db:"enqueued_at" json:"enqueuedAt"`
}

// DigestFlushMarker records that a (user, cadence, period) digest was
// flushed. Its primary key makes a second flush of the same period a no-op.
type DigestFlushMarker struct {
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Cadence   Cadence   `db:"cadence" json:"cadence"`
	PeriodKey string    `db:"period_key" json:"periodKey"`
	FlushedAt time.Time `db:"flushed_at" json:"flushedAt"`
}
