package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dealradar/backend/internal/model"
)

type preferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository creates a new notification preference repository
func NewPreferenceRepository(db *sqlx.DB) PreferenceRepositoryInterface {
	return &preferenceRepository{db: db}
}

// Get returns a user's stored preference row
func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	var prefs model.NotificationPreference
	err := r.db.GetContext(ctx, &prefs, `
		SELECT * FROM notification_preferences WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return &prefs, nil
}

// GetOrDefault returns the stored preferences, or the default policy for
// users who never saved any.
func (r *preferenceRepository) GetOrDefault(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	prefs, err := r.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DefaultPreference(userID), nil
		}
		return nil, err
	}
	return prefs, nil
}

// Upsert creates or replaces a user's preferences. The daily counter is
// deliberately untouched so a preference edit cannot reset the rate limit.
func (r *preferenceRepository) Upsert(ctx context.Context, prefs *model.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, email_enabled, sms_enabled, chat_enabled, push_enabled,
			chat_webhook_url, frequency, quiet_hours_start, quiet_hours_end,
			timezone, max_per_day, categories
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			chat_enabled = EXCLUDED.chat_enabled,
			push_enabled = EXCLUDED.push_enabled,
			chat_webhook_url = EXCLUDED.chat_webhook_url,
			frequency = EXCLUDED.frequency,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			max_per_day = EXCLUDED.max_per_day,
			categories = EXCLUDED.categories,
			updated_at = CURRENT_TIMESTAMP
		RETURNING daily_count, daily_count_day, created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		prefs.UserID, prefs.EmailEnabled, prefs.SMSEnabled, prefs.ChatEnabled, prefs.PushEnabled,
		prefs.ChatWebhookURL, prefs.Frequency, prefs.QuietHoursStart, prefs.QuietHoursEnd,
		prefs.Timezone, prefs.MaxPerDay, prefs.Categories,
	).Scan(&prefs.DailyCount, &prefs.DailyCountDay, &prefs.CreatedAt, &prefs.UpdatedAt)
}

// TryIncrementDaily consumes one daily-cap slot for localDay, the calendar
// day in the user's zone. The counter is keyed by that day, so the midnight
// reset is just the key changing. Returns false when the cap is already
// spent. The conditional UPDATE is the atomicity guard; callers must not
// read-then-write.
func (r *preferenceRepository) TryIncrementDaily(ctx context.Context, userID uuid.UUID, localDay string, max int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notification_preferences SET
			daily_count = CASE WHEN daily_count_day = $2 THEN daily_count + 1 ELSE 1 END,
			daily_count_day = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
		  AND (daily_count_day IS DISTINCT FROM $2 OR daily_count < $3)
	`, userID, localDay, max)
	if err != nil {
		return false, fmt.Errorf("increment daily count: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 1 {
		return true, nil
	}

	// No row updated: either the cap is spent or the user has no preference
	// row yet. Seed one for the latter case.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM notification_preferences WHERE user_id = $1)
	`, userID); err != nil {
		return false, fmt.Errorf("check preferences row: %w", err)
	}
	if exists {
		return false, nil
	}

	d := model.DefaultPreference(userID)
	result, err = r.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (
			user_id, email_enabled, push_enabled, frequency, max_per_day,
			daily_count, daily_count_day
		) VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (user_id) DO NOTHING
	`, d.UserID, d.EmailEnabled, d.PushEnabled, d.Frequency, d.MaxPerDay, localDay)
	if err != nil {
		return false, fmt.Errorf("seed preferences row: %w", err)
	}
	rows, _ = result.RowsAffected()
	if rows == 1 {
		return true, nil
	}

	// Lost the seed race; the row exists now, take the normal path once more.
	return r.TryIncrementDaily(ctx, userID, localDay, max)
}
