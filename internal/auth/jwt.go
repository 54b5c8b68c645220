package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	claimSubject  = "sub"
	claimMemberID = "member_id"
)

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
// Decode failures surface as 401 before any handler runs. A server with no
// configured secret fails closed: verifying against the empty key would let
// anyone mint valid tokens.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	if strings.TrimSpace(secret) == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if skipper != nil && skipper(c) {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "bearer auth is not configured")
			}
		}
	}
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization:Bearer ",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// MemberIDFromContext extracts the token's member subject. A token that
// decoded but carries no usable subject is an invalid token (401), not an
// ownership failure.
func MemberIDFromContext(c echo.Context) (string, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	if memberID := claimString(claims, claimMemberID); memberID != "" {
		return memberID, nil
	}
	if memberID := claimString(claims, claimSubject); memberID != "" {
		return memberID, nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "member id missing from token")
}

// RequireOwner checks that the token subject owns the resource. A valid
// token for the wrong member is an authorization failure (403), kept
// distinct from token decode problems (401).
func RequireOwner(c echo.Context, ownerMemberID string) error {
	subject, err := MemberIDFromContext(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(ownerMemberID) == "" || subject != ownerMemberID {
		return echo.NewHTTPError(http.StatusForbidden, "token does not grant access to this member")
	}
	return nil
}

// GenerateToken creates a signed JWT whose subject is the member id.
func GenerateToken(memberID, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(memberID) == "" {
		return "", time.Time{}, fmt.Errorf("member id is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject:  memberID,
		claimMemberID: memberID,
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
