package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/backend/internal/model"
)

// scriptedAdapter returns canned outcomes in order, repeating the last one.
type scriptedAdapter struct {
	channel  model.Channel
	outcomes []Outcome
	calls    int
}

func (a *scriptedAdapter) Channel() model.Channel { return a.channel }

func (a *scriptedAdapter) Send(ctx context.Context, target Target, content Content) Outcome {
	i := a.calls
	if i >= len(a.outcomes) {
		i = len(a.outcomes) - 1
	}
	a.calls++
	return a.outcomes[i]
}

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestSendWithRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	a := &scriptedAdapter{channel: model.ChannelEmail, outcomes: []Outcome{OK()}}
	out := SendWithRetry(context.Background(), fastRetry(), nil, a, Target{}, Content{})

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 1, a.calls)
}

func TestSendWithRetryRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	a := &scriptedAdapter{channel: model.ChannelEmail, outcomes: []Outcome{
		Retryable(errors.New("timeout")),
		OK(),
	}}
	out := SendWithRetry(context.Background(), fastRetry(), nil, a, Target{}, Content{})

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, 2, a.calls)
}

func TestSendWithRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	sendErr := errors.New("provider flapping")
	a := &scriptedAdapter{channel: model.ChannelChat, outcomes: []Outcome{Retryable(sendErr)}}
	out := SendWithRetry(context.Background(), fastRetry(), nil, a, Target{}, Content{})

	assert.Equal(t, StatusRetryable, out.Status)
	assert.Equal(t, sendErr, out.Err)
	assert.Equal(t, 3, a.calls)
}

func TestSendWithRetryStopsOnPermanentFailure(t *testing.T) {
	t.Parallel()

	a := &scriptedAdapter{channel: model.ChannelPush, outcomes: []Outcome{Permanent(ErrNoTarget)}}
	out := SendWithRetry(context.Background(), fastRetry(), nil, a, Target{}, Content{})

	assert.Equal(t, StatusPermanent, out.Status)
	assert.Equal(t, 1, a.calls)
}

func TestSendWithRetryHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &scriptedAdapter{channel: model.ChannelEmail, outcomes: []Outcome{OK()}}
	out := SendWithRetry(ctx, fastRetry(), nil, a, Target{}, Content{})

	require.Equal(t, StatusRetryable, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 0, a.calls)
}
