package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealradar/backend/internal/model"
)

// ChatWebhookAdapter posts alert text to a user-provided incoming webhook
// (Slack, Discord and compatible services all accept a {"text": ...} body).
type ChatWebhookAdapter struct {
	client *http.Client
}

func NewChatWebhookAdapter(timeout time.Duration) *ChatWebhookAdapter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ChatWebhookAdapter{
		client: &http.Client{Timeout: timeout},
	}
}

func (a *ChatWebhookAdapter) Channel() model.Channel { return model.ChannelChat }

type chatMessage struct {
	Text string `json:"text"`
}

func (a *ChatWebhookAdapter) Send(ctx context.Context, target Target, content Content) Outcome {
	if target.WebhookURL == "" {
		return Permanent(ErrNoTarget)
	}

	text := content.Subject + "\n" + content.Body
	if content.URL != "" {
		text += "\n" + content.URL
	}
	body, err := json.Marshal(chatMessage{Text: text})
	if err != nil {
		return Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// Network failure or timeout; worth another attempt.
		return Retryable(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OK()
	case resp.StatusCode == 429:
		return Retryable(ErrRateLimited)
	case resp.StatusCode >= 500:
		return Retryable(fmt.Errorf("webhook returned %d", resp.StatusCode))
	default:
		// 4xx means the webhook is gone or rejects us; retrying won't help.
		return Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
	}
}
