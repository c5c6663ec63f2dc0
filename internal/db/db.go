package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/chirp/internal/logging"
	"github.com/sudo-init-do/chirp/internal/metrics"
)

// Querier is the subset of *pgxpool.Pool used by the stores. pgx.Tx
// satisfies it too; Begin on a transaction opens a savepoint.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a pool against dsn and pings it.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.ConnConfig.Tracer = queryTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logging.Info().Str("host", cfg.ConnConfig.Host).Msg("connected to Postgres")
	return pool, nil
}

// EnsureSchema creates the tables if they are missing. It is idempotent and
// runs at every startup; there is no migration history.
func EnsureSchema(ctx context.Context, q Querier) error {
	if err := ensureUsersTable(ctx, q); err != nil {
		return err
	}
	if err := ensureAccountsTable(ctx, q); err != nil {
		return err
	}
	return ensurePostsTable(ctx, q)
}

func ensureUsersTable(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NULL,
			email TEXT NULL,
			image TEXT NULL,
			password_hash TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT users_name_key UNIQUE (name),
			CONSTRAINT users_email_key UNIQUE (email)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	// The store lowercases emails; this index holds for writes that bypass it.
	if _, err := q.Exec(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (lower(email))`); err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}
	return nil
}

// ensureAccountsTable links external sign-in providers to users.
func ensureAccountsTable(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			provider TEXT NOT NULL,
			provider_account_id TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (provider, provider_account_id)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

func ensurePostsTable(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL REFERENCES users(id),
			content VARCHAR(255) NOT NULL CHECK (char_length(content) >= 1),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create posts table: %w", err)
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_creator_created ON posts(creator_id, created_at DESC)`,
	} {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create posts index: %w", err)
		}
	}
	return nil
}

type queryStartKey struct{}

// queryTracer records query latency for every statement the pool runs.
type queryTracer struct{}

func (queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	metrics.ObserveQuery(data.CommandTag.String(), time.Since(start), data.Err)
}
