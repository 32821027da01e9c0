package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	t.Parallel()

	err := BadRequest("invalid price range")
	assert.Equal(t, "invalid price range", err.Error())

	withField := ValidationError("max_price", "must be greater than min_price")
	assert.Equal(t, "max_price: must be greater than min_price", withField.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := Wrap(inner, "saving rule failed")
	assert.True(t, errors.Is(err, inner))
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		sentinel   error
	}{
		{"not found", NotFound("alert rule"), http.StatusNotFound, ErrNotFound},
		{"bad request", BadRequest("oops"), http.StatusBadRequest, ErrBadRequest},
		{"validation", ValidationError("channels", "unknown channel"), http.StatusBadRequest, ErrValidation},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized, ErrUnauthorized},
		{"conflict", Conflict("duplicate watchlist item"), http.StatusConflict, ErrConflict},
		{"internal", Internal(errors.New("db down")), http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			if tt.sentinel != nil {
				assert.True(t, errors.Is(tt.err, tt.sentinel))
			}
		})
	}
}

func TestGetStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, GetStatusCode(NotFound("rule")))
	assert.Equal(t, http.StatusNotFound, GetStatusCode(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, GetStatusCode(ErrValidation))
	assert.Equal(t, http.StatusConflict, GetStatusCode(ErrConflict))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(errors.New("unknown")))
}

func TestGetMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alert rule not found", GetMessage(NotFound("alert rule")))
	assert.Equal(t, "plain error", GetMessage(errors.New("plain error")))
}
