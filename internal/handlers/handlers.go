// Package handlers wires the HTTP surface: member-facing CRUD, the
// messaging webhook and the server-to-server update path.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/associahq/associa/internal/eligibility"
	"github.com/associahq/associa/internal/identifier"
	"github.com/associahq/associa/internal/identity"
	"github.com/associahq/associa/internal/registry"
)

// ErrorResponse is the single error shape every endpoint returns.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ConfirmationResponse carries the fixed success message of mutating
// endpoints.
type ConfirmationResponse struct {
	Detail string `json:"detail"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindAndValidate decodes the payload and runs struct validation,
// reporting field problems as 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// mapDomainError translates domain error kinds onto the response taxonomy.
// Unknown errors become an opaque 500: raw storage errors never reach the
// caller.
func mapDomainError(err error) error {
	var httpErr *echo.HTTPError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, identifier.ErrInvalidFormat):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid identifier format")
	case errors.Is(err, identifier.ErrInvalidChecksum):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid identifier check digits")
	case errors.Is(err, identity.ErrValidationFailed):
		return echo.NewHTTPError(http.StatusBadRequest, "provided data does not match member record")
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, registry.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	case errors.Is(err, registry.ErrDuplicate):
		return echo.NewHTTPError(http.StatusBadRequest, "resource already exists")
	case errors.Is(err, eligibility.ErrNotActive):
		return echo.NewHTTPError(http.StatusForbidden, "Member is not active")
	case errors.Is(err, identity.ErrAmbiguous):
		return echo.NewHTTPError(http.StatusInternalServerError, "data integrity error")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
