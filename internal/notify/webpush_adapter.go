package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/dealradar/backend/internal/model"
)

// EndpointPruner removes push subscriptions the push service reports gone.
type EndpointPruner interface {
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

// WebPushAdapter delivers via the Web Push protocol with VAPID auth.
// A user may have several subscribed browsers; the send succeeds if at
// least one endpoint accepts the payload.
type WebPushAdapter struct {
	publicKey  string
	privateKey string
	subject    string
	pruner     EndpointPruner
}

// NewWebPushAdapter returns nil when VAPID keys are absent so the channel
// stays unregistered instead of failing every send.
func NewWebPushAdapter(publicKey, privateKey, subject string, pruner EndpointPruner) *WebPushAdapter {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &WebPushAdapter{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		pruner:     pruner,
	}
}

func (a *WebPushAdapter) Channel() model.Channel { return model.ChannelPush }

type webPushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

func (a *WebPushAdapter) Send(ctx context.Context, target Target, content Content) Outcome {
	if len(target.PushSubscriptions) == 0 {
		return Permanent(ErrNoTarget)
	}

	payload, err := json.Marshal(webPushPayload{
		Title: content.Subject,
		Body:  content.Body,
		URL:   content.URL,
		Tag:   "deal-" + target.UserID.String(),
	})
	if err != nil {
		return Permanent(err)
	}

	delivered := 0
	var lastErr error
	transient := false

	for _, sub := range target.PushSubscriptions {
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}

		resp, err := webpush.SendNotification(payload, wpSub, &webpush.Options{
			Subscriber:      a.subject,
			VAPIDPublicKey:  a.publicKey,
			VAPIDPrivateKey: a.privateKey,
			TTL:             86400, // 24 hours
		})
		if err != nil {
			lastErr = err
			transient = true
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			delivered++
		case resp.StatusCode == 404 || resp.StatusCode == 410:
			// Expired or revoked subscription; drop it.
			if a.pruner != nil {
				_ = a.pruner.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint)
			}
			lastErr = ErrEndpointGone
		case resp.StatusCode == 429 || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("push service returned %d", resp.StatusCode)
			transient = true
		default:
			lastErr = fmt.Errorf("push service returned %d", resp.StatusCode)
		}
	}

	if delivered > 0 {
		return OK()
	}
	if transient {
		return Retryable(lastErr)
	}
	return Permanent(lastErr)
}
