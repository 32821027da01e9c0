package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dealradar/backend/internal/model"
)

// notificationRecordRepository is the dedup source of truth: a partial unique
// index on (source_id, listing_id, channel) WHERE superseded_by IS NULL
// guarantees at most one live record per pair per channel.
type notificationRecordRepository struct {
	db *sqlx.DB
}

// NewNotificationRecordRepository creates a new notification record repository
func NewNotificationRecordRepository(db *sqlx.DB) NotificationRecordRepositoryInterface {
	return &notificationRecordRepository{db: db}
}

// Record durably stores one terminal channel outcome. The insert is
// idempotent: replaying the same (source, listing, channel) after a crash is
// a no-op, so retried ticks cannot double-notify. A live exhausted-retry
// record for the same key is marked superseded first, so a later re-attempt
// appends history instead of colliding. Returns whether a row was written.
func (r *notificationRecordRepository) Record(ctx context.Context, rec *model.NotificationRecord) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Retry path: supersede a live failed record before appending the new one.
	_, err = tx.ExecContext(ctx, `
		UPDATE notification_records SET superseded_by = $1
		WHERE source_id = $2 AND listing_id = $3 AND channel = $4
		  AND superseded_by IS NULL AND outcome = 'failed'
	`, rec.ID, rec.SourceID, rec.ListingID, rec.Channel)
	if err != nil {
		return false, fmt.Errorf("supersede failed record: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO notification_records (
			id, user_id, source_type, source_id, listing_id, channel, outcome, error, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		ON CONFLICT (source_id, listing_id, channel) WHERE superseded_by IS NULL
		DO NOTHING
	`, rec.ID, rec.UserID, rec.SourceType, rec.SourceID, rec.ListingID,
		rec.Channel, rec.Outcome, rec.Error)
	if err != nil {
		return false, fmt.Errorf("insert notification record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit record tx: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// Exists reports whether the pair already reached a settled outcome on the
// channel. Exhausted-retry records do not count: a replayed tick may try
// those again (Record supersedes them).
func (r *notificationRecordRepository) Exists(ctx context.Context, sourceID, listingID uuid.UUID, channel model.Channel) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notification_records
		WHERE source_id = $1 AND listing_id = $2 AND channel = $3
		  AND superseded_by IS NULL
		  AND outcome IN ('sent', 'permanent_failure')
	`, sourceID, listingID, channel)
	if err != nil {
		return false, fmt.Errorf("check notification record: %w", err)
	}
	return count > 0, nil
}

// ListByUser returns a user's notification history, newest first, including
// failures so a broken channel is visible rather than silent.
func (r *notificationRecordRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationRecord, error) {
	var records []model.NotificationRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM notification_records
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notification records: %w", err)
	}
	return records, nil
}
