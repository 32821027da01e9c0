package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dealradar/backend/internal/model"
)

type alertRuleRepository struct {
	db *sqlx.DB
}

// NewAlertRuleRepository creates a new alert rule repository
func NewAlertRuleRepository(db *sqlx.DB) AlertRuleRepositoryInterface {
	return &alertRuleRepository{db: db}
}

// Create inserts a new alert rule
func (r *alertRuleRepository) Create(ctx context.Context, rule *model.AlertRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	query := `
		INSERT INTO alert_rules (
			id, user_id, name, enabled, keywords, exclude_keywords, categories,
			condition, min_price, max_price, latitude, longitude, radius_km,
			min_deal_score, channels
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		rule.ID, rule.UserID, rule.Name, rule.Enabled, rule.Keywords, rule.ExcludeKeywords,
		rule.Categories, rule.Condition, rule.MinPrice, rule.MaxPrice,
		rule.Latitude, rule.Longitude, rule.RadiusKM, rule.MinDealScore, rule.Channels,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

// GetByID returns a rule by ID
func (r *alertRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AlertRule, error) {
	var rule model.AlertRule
	err := r.db.GetContext(ctx, &rule, `SELECT * FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get alert rule: %w", err)
	}
	return &rule, nil
}

// ListByUser returns all rules owned by a user
func (r *alertRuleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	err := r.db.SelectContext(ctx, &rules, `
		SELECT * FROM alert_rules WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	return rules, nil
}

// ListEnabled returns every enabled rule; this is the scope of a rule-check
// tick.
func (r *alertRuleRepository) ListEnabled(ctx context.Context) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	err := r.db.SelectContext(ctx, &rules, `
		SELECT * FROM alert_rules WHERE enabled = true ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}
	return rules, nil
}

// Update replaces the user-editable fields of a rule
func (r *alertRuleRepository) Update(ctx context.Context, rule *model.AlertRule) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alert_rules SET
			name = $1,
			keywords = $2,
			exclude_keywords = $3,
			categories = $4,
			condition = $5,
			min_price = $6,
			max_price = $7,
			latitude = $8,
			longitude = $9,
			radius_km = $10,
			min_deal_score = $11,
			channels = $12,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $13 AND user_id = $14
	`, rule.Name, rule.Keywords, rule.ExcludeKeywords, rule.Categories, rule.Condition,
		rule.MinPrice, rule.MaxPrice, rule.Latitude, rule.Longitude, rule.RadiusKM,
		rule.MinDealScore, rule.Channels, rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("update alert rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert rule not found")
	}
	return nil
}

// SetEnabled pauses or resumes a rule. Takes effect on the next tick's scope
// enumeration; in-flight evaluations complete normally.
func (r *alertRuleRepository) SetEnabled(ctx context.Context, userID, id uuid.UUID, enabled bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alert_rules SET enabled = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND user_id = $3
	`, enabled, id, userID)
	if err != nil {
		return fmt.Errorf("set rule enabled: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert rule not found")
	}
	return nil
}

// Delete removes a rule
func (r *alertRuleRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM alert_rules WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete alert rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert rule not found")
	}
	return nil
}

// AdvanceWatermark moves last_triggered_at forward, never backward. The guard
// makes a stale writer lose instead of clobbering a newer watermark.
func (r *alertRuleRepository) AdvanceWatermark(ctx context.Context, id uuid.UUID, to time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE alert_rules SET
			last_triggered_at = $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		  AND (last_triggered_at IS NULL OR last_triggered_at < $1)
	`, to, id)
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}
