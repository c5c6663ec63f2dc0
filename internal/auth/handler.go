package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/logging"
	"github.com/sudo-init-do/chirp/internal/user"
	"github.com/sudo-init-do/chirp/internal/validation"
)

type Handler struct {
	Users  user.Store
	Tokens *TokenIssuer
	// Discord is nil when Discord sign-in is not configured.
	Discord *oauth2.Config
	// DiscordProfileURL is the endpoint returning the signed-in Discord user.
	DiscordProfileURL string
}

func NewHandler(users user.Store, tokens *TokenIssuer, discord *oauth2.Config) *Handler {
	return &Handler{
		Users:             users,
		Tokens:            tokens,
		Discord:           discord,
		DiscordProfileURL: discordProfileURL,
	}
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Image    string `json:"image" validate:"omitempty,url"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned by every sign-in path.
type SessionResponse struct {
	Token string       `json:"token"`
	User  user.Profile `json:"user"`
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("body", "invalid request")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(&req); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u := user.User{
		Name:         &req.Name,
		Email:        &req.Email,
		PasswordHash: string(hashed),
	}
	if req.Image != "" {
		u.Image = &req.Image
	}
	ctx := c.Request().Context()
	created, err := h.Users.Create(ctx, u)
	switch {
	case errors.Is(err, user.ErrNameTaken):
		return apperr.InvalidInput("name", "name is already taken")
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.InvalidInput("email", "email is already registered")
	case err != nil:
		return err
	}
	logging.Ctx(ctx).Info().Str("user_id", created.ID).Msg("user signed up")

	return h.session(c, http.StatusCreated, created)
}

// ===== Login =====
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("body", "invalid request")
	}
	if err := validation.Struct(&req); err != nil {
		return err
	}

	u, err := h.Users.GetByEmail(c.Request().Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Unauthenticated("invalid credentials")
		}
		return err
	}
	// OAuth-only accounts have no password.
	if u.PasswordHash == "" {
		return apperr.Unauthenticated("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return apperr.Unauthenticated("invalid credentials")
	}

	return h.session(c, http.StatusOK, u)
}

func (h *Handler) session(c echo.Context, status int, u user.User) error {
	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		return err
	}
	return c.JSON(status, SessionResponse{Token: token, User: user.Project(u)})
}
