package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WatchlistItem tracks one listing for one user, optionally with a price
// threshold. AlertSent is a one-shot flag: it flips to true exactly once when
// the listing's price crosses the threshold and is never reset.
type WatchlistItem struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	UserID         uuid.UUID        `db:"user_id" json:"userId"`
	ListingID      uuid.UUID        `db:"listing_id" json:"listingId"`
	PriceThreshold *decimal.Decimal `db:"price_threshold" json:"priceThreshold,omitempty"`
	AlertSent      bool             `db:"alert_sent" json:"alertSent"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}
