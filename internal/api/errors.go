package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/inkpipe/internal/api/middleware"
	"github.com/phrazzld/inkpipe/internal/store"
	"github.com/phrazzld/inkpipe/internal/task"
)

// MapErrorToStatusCode maps domain and store errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, middleware.ErrInvalidToken), errors.Is(err, middleware.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, task.ErrInvalidPayload), errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	case store.IsDuplicateError(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	switch MapErrorToStatusCode(err) {
	case http.StatusOK:
		return ""
	case http.StatusUnauthorized:
		return "Invalid token"
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusConflict:
		return "Resource already exists"
	case http.StatusGatewayTimeout:
		return "Request timed out"
	case http.StatusServiceUnavailable:
		return "Request canceled"
	default:
		return "An unexpected error occurred"
	}
}
