package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// VerifyStaticKey compares the presented shared secret against the
// configured one. A server with no configured key fails closed: every
// request is denied rather than every request allowed.
func VerifyStaticKey(configured, presented string) error {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return echo.NewHTTPError(http.StatusForbidden, "server-to-server access is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(configured), []byte(strings.TrimSpace(presented))) != 1 {
		return echo.NewHTTPError(http.StatusForbidden, "invalid api key")
	}
	return nil
}

// StaticKeyMiddleware guards a route group with the shared secret, taken
// from the X-Api-Key header or a key query parameter.
func StaticKeyMiddleware(configured string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			presented := c.Request().Header.Get("X-Api-Key")
			if presented == "" {
				presented = c.QueryParam("key")
			}
			if err := VerifyStaticKey(configured, presented); err != nil {
				return err
			}
			return next(c)
		}
	}
}
