package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/associahq/associa/internal/eligibility"
	"github.com/associahq/associa/internal/identifier"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/registry"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "invalid format", err: identifier.ErrInvalidFormat, wantCode: http.StatusUnprocessableEntity},
		{name: "invalid checksum", err: identifier.ErrInvalidChecksum, wantCode: http.StatusUnprocessableEntity},
		{name: "validation failed", err: identity.ErrValidationFailed, wantCode: http.StatusBadRequest},
		{name: "identity not found", err: identity.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "registry not found", err: registry.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "duplicate", err: registry.ErrDuplicate, wantCode: http.StatusBadRequest},
		{name: "not active", err: eligibility.ErrNotActive, wantCode: http.StatusForbidden},
		{name: "ambiguous", err: identity.ErrAmbiguous, wantCode: http.StatusInternalServerError},
		{name: "wrapped sentinel", err: fmt.Errorf("replace phone channel: %w", registry.ErrDuplicate), wantCode: http.StatusBadRequest},
		{name: "unknown", err: assert.AnError, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapDomainError(tt.err)
			require.Error(t, err)
			httpErr, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapDomainErrorPassesThroughHTTPErrors(t *testing.T) {
	original := echo.NewHTTPError(http.StatusForbidden, "token does not grant access to this member")
	assert.Equal(t, original, mapDomainError(original))
	assert.NoError(t, mapDomainError(nil))
}

func TestMapDomainErrorHidesStorageDetails(t *testing.T) {
	err := mapDomainError(fmt.Errorf("pq: relation does not exist"))
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	assert.Equal(t, "internal error", httpErr.Message)
}
