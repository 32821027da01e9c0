package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is a marketplace listing as produced by the (external) marketplace
// adapters. The engine only reads listings; the deal score is computed
// upstream and arrives as an input attribute.
type Listing struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	ExternalID  string          `db:"external_id" json:"externalId"`
	Marketplace string          `db:"marketplace" json:"marketplace"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Condition   string          `db:"condition" json:"condition"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Latitude    *float64        `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64        `db:"longitude" json:"longitude,omitempty"`
	DealScore   float64         `db:"deal_score" json:"dealScore"`
	URL         string          `db:"url" json:"url"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}
