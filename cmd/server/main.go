package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/auth"
	"github.com/sudo-init-do/chirp/internal/config"
	"github.com/sudo-init-do/chirp/internal/db"
	"github.com/sudo-init-do/chirp/internal/feed"
	"github.com/sudo-init-do/chirp/internal/logging"
	mware "github.com/sudo-init-do/chirp/internal/middleware"
	"github.com/sudo-init-do/chirp/internal/post"
	"github.com/sudo-init-do/chirp/internal/ratelimit"
	"github.com/sudo-init-do/chirp/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pool, err := db.Connect(ctx, cfg.DB.DSN(), cfg.DB.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	limiter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	users := user.NewPGStore(pool)
	userSvc := user.NewService(users)
	hub := feed.NewHub()
	postSvc := post.NewService(post.NewPGStore(pool), userSvc, limiter,
		post.WithPublisher(hub),
		post.WithRateLimitPolicy(cfg.RateLimit.Limit, cfg.RateLimit.Window),
	)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	discord := auth.NewDiscordConfig(cfg.OAuth.DiscordClientID, cfg.OAuth.DiscordClientSecret, cfg.OAuth.RedirectURL)

	e := newServer(cfg, handlers{
		posts: post.NewHandler(postSvc),
		users: user.NewHandler(userSvc),
		auth:  auth.NewHandler(users, tokens, discord),
		feed:  hub,
		ready: pool,
	})

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newLimiter prefers Redis so every instance shares one window. Without a
// Redis address the window is kept in process.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func()) {
	rl := cfg.RateLimit
	if rl.Disabled {
		logging.Warn().Msg("post rate limiting is disabled")
		return ratelimit.AllowAll, func() {}
	}
	if cfg.Redis.Addr == "" {
		logging.Info().Msg("using in-process rate limiter")
		return ratelimit.NewMemory(rl.Limit, rl.Window, nil), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// Posting fails closed until Redis comes back.
		logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup")
	}
	logging.Info().Str("addr", cfg.Redis.Addr).Msg("using redis rate limiter")
	return ratelimit.NewRedis(client, rl.Limit, rl.Window), func() { _ = client.Close() }
}

// pinger reports database readiness.
type pinger interface {
	Ping(ctx context.Context) error
}

var _ pinger = (*pgxpool.Pool)(nil)

type handlers struct {
	posts *post.Handler
	users *user.Handler
	auth  *auth.Handler
	feed  *feed.Hub
	ready pinger
}

func newServer(cfg *config.Config, h handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler

	e.Use(mware.RequestID())
	e.Use(mware.AccessLog())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := h.ready.Ping(c.Request().Context()); err != nil {
			return apperr.Unavailable("database unreachable", err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/ws/feed", h.feed.ServeWS)

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.AuthRequestsPerSecond))))
	authGroup.POST("/signup", h.auth.Signup)
	authGroup.POST("/login", h.auth.Login)
	authGroup.GET("/discord/login", h.auth.DiscordLogin)
	authGroup.GET("/discord/callback", h.auth.DiscordCallback)

	jwt := mware.JWT(h.auth.Tokens)
	e.GET("/auth/me", h.auth.Me, jwt)

	e.GET("/posts", h.posts.List)
	e.GET("/posts/:id", h.posts.Get)
	e.POST("/posts", h.posts.Create, jwt)

	e.GET("/users", h.users.List)
	e.GET("/users/:id", h.users.GetProfile)
	e.GET("/users/by-name/:name", h.users.GetProfileByName)
	e.GET("/users/:id/posts", h.posts.ListByUser)

	return e
}
