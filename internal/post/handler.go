package post

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/middleware"
)

type Handler struct {
	Posts *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Posts: svc}
}

type CreateRequest struct {
	Content string `json:"content"`
}

// GET /posts?creator_id=
func (h *Handler) List(c echo.Context) error {
	posts, err := h.Posts.GetAll(c.Request().Context(), c.QueryParam("creator_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// GET /posts/:id
func (h *Handler) Get(c echo.Context) error {
	p, err := h.Posts.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// GET /users/:id/posts
func (h *Handler) ListByUser(c echo.Context) error {
	posts, err := h.Posts.GetByUserID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// POST /posts
func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("body", "invalid request")
	}

	p, err := h.Posts.Create(c.Request().Context(), middleware.UserID(c), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}
