package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dealradar/backend/internal/model"
)

type digestRepository struct {
	db *sqlx.DB
}

// NewDigestRepository creates a new digest queue repository
func NewDigestRepository(db *sqlx.DB) DigestRepositoryInterface {
	return &digestRepository{db: db}
}

// Enqueue defers a match into the user's digest queue. Unique per
// (user, cadence, rule, listing); re-deferring the same match is a no-op.
// Returns whether a new entry was written.
func (r *digestRepository) Enqueue(ctx context.Context, entry *model.DigestEntry) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO digest_entries (
			user_id, cadence, rule_id, rule_name, listing_id, listing_title,
			listing_price, listing_url, deal_score, listing_created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, cadence, rule_id, listing_id) DO NOTHING
	`, entry.UserID, entry.Cadence, entry.RuleID, entry.RuleName, entry.ListingID,
		entry.ListingTitle, entry.ListingPrice, entry.ListingURL, entry.DealScore,
		entry.ListingCreatedAt)
	if err != nil {
		return false, fmt.Errorf("enqueue digest entry: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// ListUsersWithPending returns the scope of a digest-flush tick.
func (r *digestRepository) ListUsersWithPending(ctx context.Context, cadence model.Cadence) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	err := r.db.SelectContext(ctx, &userIDs, `
		SELECT DISTINCT user_id FROM digest_entries WHERE cadence = $1
	`, cadence)
	if err != nil {
		return nil, fmt.Errorf("list users with pending digests: %w", err)
	}
	return userIDs, nil
}

// ListPending returns a user's pending entries enqueued before the cutoff.
// Matches enqueued after a flush started wait for the next period.
func (r *digestRepository) ListPending(ctx context.Context, userID uuid.UUID, cadence model.Cadence, before time.Time) ([]model.DigestEntry, error) {
	var entries []model.DigestEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM digest_entries
		WHERE user_id = $1 AND cadence = $2 AND enqueued_at < $3
		ORDER BY enqueued_at
	`, userID, cadence, before)
	if err != nil {
		return nil, fmt.Errorf("list pending digest entries: %w", err)
	}
	return entries, nil
}

// TryMarkFlushed claims a (user, cadence, period) flush. Only the first
// caller of a period sees true; this is what makes flush idempotent.
func (r *digestRepository) TryMarkFlushed(ctx context.Context, userID uuid.UUID, cadence model.Cadence, periodKey string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO digest_flushes (user_id, cadence, period_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, cadence, period_key) DO NOTHING
	`, userID, cadence, periodKey)
	if err != nil {
		return false, fmt.Errorf("mark digest flushed: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// DeleteEntries removes flushed entries once their delivery outcomes are
// durably recorded.
func (r *digestRepository) DeleteEntries(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM digest_entries WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete digest entries: %w", err)
	}
	return nil
}
