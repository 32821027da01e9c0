// Package model defines the core domain types for the deal alert engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account owner. Authentication lives outside this
// service; the engine only needs identity and delivery coordinates.
type User struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	PhoneNumber *string   `db:"phone_number" json:"phoneNumber,omitempty"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
