package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_NotNil(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Logger())
}

func TestFromContext_Plain(t *testing.T) {
	t.Parallel()

	l := FromContext(context.Background())
	assert.Equal(t, Logger(), l)
}

func TestFromContext_WithValues(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUserID(ctx, "user-456")
	ctx = WithJob(ctx, "rule_check")

	l := FromContext(ctx)
	assert.NotNil(t, l)
	// A logger with attached attributes is a distinct instance
	assert.NotEqual(t, Logger(), l)
}

func TestFromContext_EmptyValuesIgnored(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "")
	l := FromContext(ctx)
	assert.Equal(t, Logger(), l)
}
