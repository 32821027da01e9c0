// Package service holds the API-facing business logic between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dealradar/backend/internal/apperror"
	"github.com/dealradar/backend/internal/matcher"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/repository"
)

// CreateRuleInput is the payload for creating an alert rule.
type CreateRuleInput struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Keywords        []string `json:"keywords" validate:"max=20,dive,min=1,max=60"`
	ExcludeKeywords []string `json:"excludeKeywords" validate:"max=20,dive,min=1,max=60"`
	Categories      []string `json:"categories" validate:"max=10"`
	Condition       *string  `json:"condition,omitempty"`
	MinPrice        *string  `json:"minPrice,omitempty"`
	MaxPrice        *string  `json:"maxPrice,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	RadiusKM        *float64 `json:"radiusKm,omitempty"`
	MinDealScore    *float64 `json:"minDealScore,omitempty"`
	Channels        []string `json:"channels" validate:"required,min=1,dive,oneof=email sms chat push"`
}

// UpdateRuleInput mirrors CreateRuleInput for full-rule updates.
type UpdateRuleInput = CreateRuleInput

// AlertRuleService manages alert rule CRUD and dry-run evaluation.
type AlertRuleService struct {
	rules    repository.AlertRuleRepositoryInterface
	listings repository.ListingRepositoryInterface
	validate *validator.Validate
}

func NewAlertRuleService(rules repository.AlertRuleRepositoryInterface, listings repository.ListingRepositoryInterface) *AlertRuleService {
	return &AlertRuleService{
		rules:    rules,
		listings: listings,
		validate: validator.New(),
	}
}

// Create validates and persists a new rule for the user.
func (s *AlertRuleService) Create(ctx context.Context, userID uuid.UUID, input CreateRuleInput) (*model.AlertRule, error) {
	rule, err := s.buildRule(userID, input)
	if err != nil {
		return nil, err
	}
	rule.ID = uuid.New()
	rule.Enabled = true

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperror.Internal(err)
	}
	return rule, nil
}

// Get returns one of the user's rules.
func (s *AlertRuleService) Get(ctx context.Context, userID, id uuid.UUID) (*model.AlertRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("alert rule")
		}
		return nil, apperror.Internal(err)
	}
	if rule.UserID != userID {
		// Existence of other users' rules is not leaked.
		return nil, apperror.NotFound("alert rule")
	}
	return rule, nil
}

// List returns the user's rules.
func (s *AlertRuleService) List(ctx context.Context, userID uuid.UUID) ([]model.AlertRule, error) {
	rules, err := s.rules.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return rules, nil
}

// Update replaces the rule's criteria. The watermark is preserved so editing
// a rule never replays old listings.
func (s *AlertRuleService) Update(ctx context.Context, userID, id uuid.UUID, input UpdateRuleInput) (*model.AlertRule, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rule, err := s.buildRule(userID, input)
	if err != nil {
		return nil, err
	}
	rule.ID = existing.ID
	rule.Enabled = existing.Enabled
	rule.LastTriggeredAt = existing.LastTriggeredAt
	rule.CreatedAt = existing.CreatedAt

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, apperror.Internal(err)
	}
	return rule, nil
}

// SetEnabled pauses or resumes a rule.
func (s *AlertRuleService) SetEnabled(ctx context.Context, userID, id uuid.UUID, enabled bool) error {
	if err := s.rules.SetEnabled(ctx, userID, id, enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("alert rule")
		}
		return apperror.Internal(err)
	}
	return nil
}

// Delete removes the user's rule.
func (s *AlertRuleService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.rules.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("alert rule")
		}
		return apperror.Internal(err)
	}
	return nil
}

// DryRun evaluates the given criteria against recent listings without
// persisting anything or sending notifications.
func (s *AlertRuleService) DryRun(ctx context.Context, userID uuid.UUID, input CreateRuleInput, limit int) ([]model.Listing, error) {
	rule, err := s.buildRule(userID, input)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	candidates, err := s.listings.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	matches := matcher.Evaluate(rule, candidates)
	if matches == nil {
		matches = []model.Listing{}
	}
	return matches, nil
}

// buildRule converts and validates input into a rule, surfacing structural
// problems as field errors.
func (s *AlertRuleService) buildRule(userID uuid.UUID, input CreateRuleInput) (*model.AlertRule, error) {
	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, apperror.ValidationError(fieldErrs[0].Field(), "invalid value")
		}
		return nil, apperror.BadRequest("invalid rule")
	}

	rule := &model.AlertRule{
		UserID:          userID,
		Name:            input.Name,
		Keywords:        input.Keywords,
		ExcludeKeywords: input.ExcludeKeywords,
		Categories:      input.Categories,
		Condition:       input.Condition,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		RadiusKM:        input.RadiusKM,
		MinDealScore:    input.MinDealScore,
		Channels:        input.Channels,
	}

	var err error
	if rule.MinPrice, err = parseOptionalPrice(input.MinPrice); err != nil {
		return nil, apperror.ValidationError("minPrice", "invalid price")
	}
	if rule.MaxPrice, err = parseOptionalPrice(input.MaxPrice); err != nil {
		return nil, apperror.ValidationError("maxPrice", "invalid price")
	}

	if err := matcher.Validate(rule); err != nil {
		return nil, apperror.BadRequest(err.Error())
	}
	// A rule with no positive filter would either match everything or never
	// fire depending on engine policy; neither is what the user meant.
	if matcher.IsDegenerate(rule) {
		return nil, apperror.BadRequest("rule needs at least one filter: keywords, categories, condition, price bounds, location, or a deal score")
	}
	return rule, nil
}

func parseOptionalPrice(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil || d.IsNegative() {
		return nil, errors.New("invalid price")
	}
	return &d, nil
}
