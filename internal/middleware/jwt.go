package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/chirp/internal/apperr"
)

const userIDKey = "user_id"

// TokenParser verifies a bearer token and returns the user ID it carries.
type TokenParser interface {
	Parse(token string) (string, error)
}

// JWT rejects requests without a valid bearer token and stores the caller's
// user ID for UserID.
func JWT(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apperr.Unauthenticated("missing Authorization header")
			}
			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return apperr.Unauthenticated("invalid Authorization format")
			}
			userID, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				return apperr.Unauthenticated("invalid or expired token")
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// UserID returns the authenticated caller, or "" outside JWT-protected routes.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
