package notify

import (
	"context"

	"github.com/dealradar/backend/internal/model"
)

// SMSAdapter bridges the injected SMS transport into the channel contract.
type SMSAdapter struct {
	sender SMSSender
}

func NewSMSAdapter(sender SMSSender) *SMSAdapter {
	if sender == nil {
		return nil
	}
	return &SMSAdapter{sender: sender}
}

func (a *SMSAdapter) Channel() model.Channel { return model.ChannelSMS }

func (a *SMSAdapter) Send(ctx context.Context, target Target, content Content) Outcome {
	if target.Phone == "" {
		return Permanent(ErrNoTarget)
	}
	if err := ctx.Err(); err != nil {
		return Retryable(err)
	}

	// SMS has no subject line; lead with it and keep the deep link last.
	msg := content.Subject + ": " + content.Body
	if content.URL != "" {
		msg += " " + content.URL
	}
	if err := a.sender.Send(target.Phone, msg); err != nil {
		return Retryable(err)
	}
	return OK()
}
