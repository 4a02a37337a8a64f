package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	ts := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "not found", err: ErrNotFound, expected: http.StatusNotFound},
		{name: "wrapped unauthorized", err: fmt.Errorf("list rooms: %w", ErrUnauthorized), expected: http.StatusUnauthorized},
		{name: "expired token", err: ErrTokenExpired, expected: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, expected: http.StatusForbidden},
		{name: "empty content", err: ErrEmptyContent, expected: http.StatusBadRequest},
		{name: "missing room", err: ErrMissingRoom, expected: http.StatusBadRequest},
		{name: "not connected", err: ErrNotConnected, expected: http.StatusServiceUnavailable},
		{name: "api error", err: NewAPIError("teapot", http.StatusTeapot), expected: http.StatusTeapot},
		{name: "backend 404", err: &BackendError{Status: http.StatusNotFound}, expected: http.StatusNotFound},
		{name: "backend 500", err: &BackendError{Status: http.StatusInternalServerError, Body: "oops"}, expected: http.StatusBadGateway},
		{name: "unknown", err: errors.New("something"), expected: http.StatusInternalServerError},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatusFromError(tt.err))
		})
	}
}

func TestBackendError_Is(t *testing.T) {
	err := fmt.Errorf("edit message: %w", &BackendError{Status: http.StatusUnauthorized, Body: "expired"})

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "edit message: backend returned status 401: expired", err.Error())
}
