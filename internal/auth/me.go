package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/middleware"
	"github.com/sudo-init-do/chirp/internal/user"
)

// Me returns the authenticated caller's public profile. It must run behind
// middleware.JWT.
func (h *Handler) Me(c echo.Context) error {
	id := middleware.UserID(c)
	if id == "" {
		return apperr.Unauthenticated("sign in required")
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.Project(u))
}
