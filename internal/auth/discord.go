package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/logging"
	"github.com/sudo-init-do/chirp/internal/user"
)

const (
	discordProvider   = "discord"
	discordProfileURL = "https://discord.com/api/users/@me"

	stateCookie    = "chirp_oauth_state"
	verifierCookie = "chirp_oauth_verifier"
	flowTTL        = 10 * time.Minute
)

// DiscordEndpoint is Discord's OAuth2 authorization server.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// NewDiscordConfig returns nil when clientID is empty so callers can leave
// Discord sign-in disabled.
func NewDiscordConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     DiscordEndpoint,
		Scopes:       []string{"identify", "email"},
	}
}

// discordUser is the subset of Discord's user object we read.
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

func (d discordUser) account() user.Account {
	name := d.GlobalName
	if name == "" {
		name = d.Username
	}
	acct := user.Account{
		Provider:          discordProvider,
		ProviderAccountID: d.ID,
		Name:              name,
		Email:             d.Email,
	}
	if d.Avatar != "" {
		acct.Image = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", d.ID, d.Avatar)
	}
	return acct
}

// GET /auth/discord/login
func (h *Handler) DiscordLogin(c echo.Context) error {
	if h.Discord == nil {
		return apperr.NotFound("discord sign-in is not enabled")
	}
	state, err := randomState()
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()
	setFlowCookie(c, stateCookie, state, flowTTL)
	setFlowCookie(c, verifierCookie, verifier, flowTTL)

	url := h.Discord.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	return c.Redirect(http.StatusFound, url)
}

// GET /auth/discord/callback
func (h *Handler) DiscordCallback(c echo.Context) error {
	if h.Discord == nil {
		return apperr.NotFound("discord sign-in is not enabled")
	}
	if e := c.QueryParam("error"); e != "" {
		return apperr.Unauthenticated("discord sign-in was declined: " + e)
	}
	code, state := c.QueryParam("code"), c.QueryParam("state")
	if code == "" || state == "" {
		return apperr.InvalidInput("code", "missing code or state")
	}
	sc, err := c.Cookie(stateCookie)
	if err != nil || sc.Value == "" || sc.Value != state {
		return apperr.Unauthenticated("invalid oauth state")
	}
	vc, err := c.Cookie(verifierCookie)
	if err != nil || vc.Value == "" {
		return apperr.Unauthenticated("invalid oauth state")
	}
	setFlowCookie(c, stateCookie, "", -1)
	setFlowCookie(c, verifierCookie, "", -1)

	ctx := c.Request().Context()
	tok, err := h.Discord.Exchange(ctx, code, oauth2.VerifierOption(vc.Value))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("discord code exchange failed")
		return apperr.Unauthenticated("discord sign-in failed")
	}

	du, err := h.fetchDiscordUser(c, tok)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to fetch discord profile")
		return apperr.Unauthenticated("discord sign-in failed")
	}

	u, err := h.Users.UpsertAccount(ctx, du.account())
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("user_id", u.ID).Str("provider", discordProvider).Msg("user signed in")

	return h.session(c, http.StatusOK, u)
}

func (h *Handler) fetchDiscordUser(c echo.Context, tok *oauth2.Token) (discordUser, error) {
	ctx := c.Request().Context()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.DiscordProfileURL, nil)
	if err != nil {
		return discordUser{}, err
	}
	resp, err := h.Discord.Client(ctx, tok).Do(req)
	if err != nil {
		return discordUser{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return discordUser{}, fmt.Errorf("discord profile: status %d: %s", resp.StatusCode, body)
	}
	var du discordUser
	if err := json.NewDecoder(resp.Body).Decode(&du); err != nil {
		return discordUser{}, fmt.Errorf("decode discord profile: %w", err)
	}
	if du.ID == "" {
		return discordUser{}, fmt.Errorf("discord profile has no id")
	}
	return du, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// setFlowCookie with a negative ttl clears the cookie.
func setFlowCookie(c echo.Context, name, value string, ttl time.Duration) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/discord",
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(ttl.Seconds())
	}
	c.SetCookie(ck)
}
