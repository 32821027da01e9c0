package notify

import (
	"context"

	"github.com/dealradar/backend/internal/model"
)

// EmailAdapter bridges the injected mail transport into the channel
// contract. Transport errors are treated as transient; the relay is the
// authority on permanent rejection and surfaces it before returning.
type EmailAdapter struct {
	sender EmailSender
}

func NewEmailAdapter(sender EmailSender) *EmailAdapter {
	if sender == nil {
		return nil
	}
	return &EmailAdapter{sender: sender}
}

func (a *EmailAdapter) Channel() model.Channel { return model.ChannelEmail }

func (a *EmailAdapter) Send(ctx context.Context, target Target, content Content) Outcome {
	if target.Email == "" {
		return Permanent(ErrNoTarget)
	}
	if err := ctx.Err(); err != nil {
		return Retryable(err)
	}

	body := content.Body
	if content.URL != "" {
		body += "\n\n" + content.URL
	}
	if err := a.sender.Send(target.Email, content.Subject, body); err != nil {
		return Retryable(err)
	}
	return OK()
}
