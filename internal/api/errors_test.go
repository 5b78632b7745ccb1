package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/inkpipe/internal/api/middleware"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"expired token", middleware.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid payload", fmt.Errorf("enqueue: %w", task.ErrInvalidPayload), http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessageHidesDetails(t *testing.T) {
	t.Parallel()

	err := errors.New("pq: password authentication failed for user inkpipe")
	msg := GetSafeErrorMessage(err)

	assert.Equal(t, "An unexpected error occurred", msg)
	assert.Empty(t, GetSafeErrorMessage(nil))
	assert.Equal(t, "Invalid request", GetSafeErrorMessage(task.ErrInvalidPayload))
}
