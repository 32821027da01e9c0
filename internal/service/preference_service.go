package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/apperror"
	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/repository"
	"github.com/dealradar/backend/pkg/timewindow"
)

// UpdatePreferenceInput is the full preference payload; a PUT replaces the
// stored policy.
type UpdatePreferenceInput struct {
	EmailEnabled    bool     `json:"emailEnabled"`
	SMSEnabled      bool     `json:"smsEnabled"`
	ChatEnabled     bool     `json:"chatEnabled"`
	PushEnabled     bool     `json:"pushEnabled"`
	ChatWebhookURL  *string  `json:"chatWebhookUrl,omitempty" validate:"omitempty,url"`
	Frequency       string   `json:"frequency" validate:"required,oneof=immediate daily_digest weekly_digest"`
	QuietHoursStart *string  `json:"quietHoursStart,omitempty"`
	QuietHoursEnd   *string  `json:"quietHoursEnd,omitempty"`
	Timezone        string   `json:"timezone" validate:"required"`
	MaxPerDay       int      `json:"maxPerDay" validate:"gte=0,lte=500"` // 0 disables the cap
	Categories      []string `json:"categories" validate:"max=20"`
}

// PreferenceService manages per-user notification policies.
type PreferenceService struct {
	prefs    repository.PreferenceRepositoryInterface
	validate *validator.Validate
}

func NewPreferenceService(prefs repository.PreferenceRepositoryInterface) *PreferenceService {
	return &PreferenceService{prefs: prefs, validate: validator.New()}
}

// Get returns the user's preference, falling back to the default policy.
func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	prefs, err := s.prefs.GetOrDefault(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return prefs, nil
}

// Update validates and stores the user's preference. The daily counter keeps
// its stored value; tightening the cap mid-day applies immediately against
// what was already sent.
func (s *PreferenceService) Update(ctx context.Context, userID uuid.UUID, input UpdatePreferenceInput) (*model.NotificationPreference, error) {
	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, apperror.ValidationError(fieldErrs[0].Field(), "invalid value")
		}
		return nil, apperror.BadRequest("invalid preferences")
	}

	if _, err := time.LoadLocation(input.Timezone); err != nil {
		return nil, apperror.ValidationError("timezone", "unknown IANA zone")
	}

	prefs := &model.NotificationPreference{
		UserID:         userID,
		EmailEnabled:   input.EmailEnabled,
		SMSEnabled:     input.SMSEnabled,
		ChatEnabled:    input.ChatEnabled,
		PushEnabled:    input.PushEnabled,
		ChatWebhookURL: input.ChatWebhookURL,
		Frequency:      model.Frequency(input.Frequency),
		Timezone:       input.Timezone,
		MaxPerDay:      input.MaxPerDay,
		Categories:     input.Categories,
	}

	if input.ChatEnabled && (input.ChatWebhookURL == nil || *input.ChatWebhookURL == "") {
		return nil, apperror.ValidationError("chatWebhookUrl", "required when the chat channel is enabled")
	}

	start, err := parseOptionalTime(input.QuietHoursStart)
	if err != nil {
		return nil, apperror.ValidationError("quietHoursStart", "expected HH:MM")
	}
	end, err := parseOptionalTime(input.QuietHoursEnd)
	if err != nil {
		return nil, apperror.ValidationError("quietHoursEnd", "expected HH:MM")
	}
	if (start == nil) != (end == nil) {
		return nil, apperror.BadRequest("quiet hours need both start and end")
	}
	prefs.QuietHoursStart = start
	prefs.QuietHoursEnd = end

	if err := s.prefs.Upsert(ctx, prefs); err != nil {
		return nil, apperror.Internal(err)
	}
	return prefs, nil
}

func parseOptionalTime(s *string) (*timewindow.TimeOfDay, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := timewindow.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
