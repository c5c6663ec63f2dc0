package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/db"
)

// Store is the persistence boundary for posts.
type Store interface {
	// ListRecent returns up to limit posts, newest first. An empty
	// creatorID means every creator.
	ListRecent(ctx context.Context, creatorID string, limit int) ([]Post, error)
	Get(ctx context.Context, id string) (Post, error)
	Create(ctx context.Context, p Post) (Post, error)
}

type PGStore struct {
	DB db.Querier
}

func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{DB: q}
}

func (s *PGStore) ListRecent(ctx context.Context, creatorID string, limit int) ([]Post, error) {
	query := `SELECT id, creator_id, content, created_at FROM posts`
	args := []any{limit}
	if creatorID != "" {
		query += ` WHERE creator_id = $2`
		args = append(args, creatorID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	posts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Post])
	if err != nil {
		return nil, fmt.Errorf("failed to parse post record: %w", err)
	}
	return posts, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Post, error) {
	var p Post
	err := s.DB.QueryRow(ctx,
		`SELECT id, creator_id, content, created_at FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.CreatorID, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, apperr.NotFound("post %s not found", id)
		}
		return Post{}, fmt.Errorf("failed to fetch post: %w", err)
	}
	return p, nil
}

func (s *PGStore) Create(ctx context.Context, p Post) (Post, error) {
	err := s.DB.QueryRow(ctx, `
		INSERT INTO posts (id, creator_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.CreatorID, p.Content, p.CreatedAt).Scan(&p.CreatedAt)
	if err != nil {
		return Post{}, fmt.Errorf("could not create post: %w", err)
	}
	return p, nil
}
