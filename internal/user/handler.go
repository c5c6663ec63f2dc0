package user

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	Users *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Users: svc}
}

// GET /users/:id
func (h *Handler) GetProfile(c echo.Context) error {
	p, err := h.Users.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// GET /users/by-name/:name
func (h *Handler) GetProfileByName(c echo.Context) error {
	p, err := h.Users.GetByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// GET /users
func (h *Handler) List(c echo.Context) error {
	profiles, err := h.Users.GetAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profiles)
}
