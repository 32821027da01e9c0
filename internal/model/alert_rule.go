package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// AlertRule is a user-defined multi-criteria filter over listings. All
// criteria are conjunctive; an unset criterion passes trivially. The engine
// only mutates LastTriggeredAt, which bounds the listings a rule has already
// considered.
type AlertRule struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	UserID          uuid.UUID        `db:"user_id" json:"userId"`
	Name            string           `db:"name" json:"name"`
	Enabled         bool             `db:"enabled" json:"enabled"`
	Keywords        pq.StringArray   `db:"keywords" json:"keywords"`
	ExcludeKeywords pq.StringArray   `db:"exclude_keywords" json:"excludeKeywords"`
	Categories      pq.StringArray   `db:"categories" json:"categories"`
	Condition       *string          `db:"condition" json:"condition,omitempty"`
	MinPrice        *decimal.Decimal `db:"min_price" json:"minPrice,omitempty"`
	MaxPrice        *decimal.Decimal `db:"max_price" json:"maxPrice,omitempty"`
	Latitude        *float64         `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64         `db:"longitude" json:"longitude,omitempty"`
	RadiusKM        *float64         `db:"radius_km" json:"radiusKm,omitempty"`
	MinDealScore    *float64         `db:"min_deal_score" json:"minDealScore,omitempty"`
	Channels        pq.StringArray   `db:"channels" json:"channels"`
	LastTriggeredAt *time.Time       `db:"last_triggered_at" json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// RequestedChannels converts the stored channel names into Channel values,
// dropping anything unknown.
func (r *AlertRule) RequestedChannels() []Channel {
	channels := make([]Channel, 0, len(r.Channels))
	for _, name := range r.Channels {
		c := Channel(name)
		if c.Valid() {
			channels = append(channels, c)
		}
	}
	return channels
}
