package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/dealradar/backend/internal/model"
)

// UserLookup fetches delivery coordinates for a user.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// SubscriptionLookup fetches a user's web-push subscriptions.
type SubscriptionLookup interface {
	GetSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]model.PushSubscription, error)
}

// TargetResolver assembles the per-user delivery Target from the user record
// and their preferences. Push subscriptions are only loaded when the push
// channel is actually requested.
type TargetResolver struct {
	users UserLookup
	subs  SubscriptionLookup
}

func NewTargetResolver(users UserLookup, subs SubscriptionLookup) *TargetResolver {
	return &TargetResolver{users: users, subs: subs}
}

func (r *TargetResolver) Resolve(ctx context.Context, userID uuid.UUID, prefs *model.NotificationPreference, channels []model.Channel) (Target, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return Target{}, err
	}

	target := Target{
		UserID: userID,
		Email:  user.Email,
	}
	if user.PhoneNumber != nil {
		target.Phone = *user.PhoneNumber
	}
	if prefs.ChatWebhookURL != nil {
		target.WebhookURL = *prefs.ChatWebhookURL
	}

	for _, c := range channels {
		if c == model.ChannelPush && r.subs != nil {
			subs, err := r.subs.GetSubscriptionsByUserID(ctx, userID)
			if err != nil {
				return Target{}, err
			}
			target.PushSubscriptions = subs
			break
		}
	}

	return target, nil
}
