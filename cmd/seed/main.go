// Command seed creates a user, and optionally a first post, for local
// development:
//
//	go run ./cmd/seed -name alice -post "hello"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/config"
	"github.com/sudo-init-do/chirp/internal/db"
	"github.com/sudo-init-do/chirp/internal/logging"
	"github.com/sudo-init-do/chirp/internal/post"
	"github.com/sudo-init-do/chirp/internal/ratelimit"
	"github.com/sudo-init-do/chirp/internal/user"
)

func main() {
	name := flag.String("name", "", "Display name of the user to create or reuse")
	image := flag.String("image", "", "Optional avatar URL")
	content := flag.String("post", "", "Optional post to publish as the user")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/seed -name alice [-image URL] [-post TEXT]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: "console"})

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN(), cfg.DB.MaxConns)
	if err != nil {
		logging.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logging.Fatal().Err(err).Msg("schema setup failed")
	}

	users := user.NewPGStore(pool)
	u, err := seedUser(ctx, users, *name, *image)
	if err != nil {
		logging.Fatal().Err(err).Str("name", *name).Msg("failed to seed user")
	}
	fmt.Printf("User %s has id %s.\n", *name, u.ID)

	if *content == "" {
		return
	}
	// Seeding bypasses the posting rate limit.
	posts := post.NewService(post.NewPGStore(pool), user.NewService(users), ratelimit.AllowAll)
	p, err := posts.Create(ctx, u.ID, *content)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to seed post")
	}
	fmt.Printf("Post %s created.\n", p.ID)
}

// seedUser returns the user named name, creating it when missing.
func seedUser(ctx context.Context, users user.Store, name, image string) (user.User, error) {
	u, err := users.GetByName(ctx, name)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return user.User{}, err
	}

	u = user.User{Name: &name}
	if image != "" {
		u.Image = &image
	}
	return users.Create(ctx, u)
}
