package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/db"
)

// ErrNameTaken is returned by Create when the display name is in use.
var ErrNameTaken = errors.New("name already taken")

// ErrEmailTaken is returned by Create when the email is in use.
var ErrEmailTaken = errors.New("email already registered")

// Store is the persistence boundary for users.
type Store interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByName(ctx context.Context, name string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, limit int) ([]User, error)
	// ListByIDs returns at most limit users whose ID is in ids, in no
	// particular order. Unknown IDs are skipped.
	ListByIDs(ctx context.Context, ids []string, limit int) ([]User, error)
	Create(ctx context.Context, u User) (User, error)
	// UpsertAccount returns the user linked to the provider account,
	// creating both on first sign-in.
	UpsertAccount(ctx context.Context, acct Account) (User, error)
}

// Account links an external identity provider account to a user.
type Account struct {
	Provider          string
	ProviderAccountID string
	Name              string
	Email             string
	Image             string
}

// PGStore implements Store on Postgres.
type PGStore struct {
	DB db.Querier
}

func NewPGStore(q db.Querier) *PGStore {
	return &PGStore{DB: q}
}

const userColumns = `id, name, email, image, COALESCE(password_hash, ''), created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *PGStore) getOne(ctx context.Context, what, query, arg string) (User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user %s not found", what)
		}
		return User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

func (s *PGStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.getOne(ctx, id, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PGStore) GetByName(ctx context.Context, name string) (User, error) {
	return s.getOne(ctx, name, `SELECT `+userColumns+` FROM users WHERE name = $1`, name)
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, email, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *PGStore) List(ctx context.Context, limit int) ([]User, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY name NULLS LAST, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return collect(rows)
}

func (s *PGStore) ListByIDs(ctx context.Context, ids []string, limit int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	rows, err := s.DB.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) LIMIT $2`, ids, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by id: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]User, error) {
	users, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (User, error) {
		return scanUser(r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse user record: %w", err)
	}
	return users, nil
}

// Create inserts u. Emails are stored trimmed and lowercased.
func (s *PGStore) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		u.Email = &email
	}
	var hash *string
	if u.PasswordHash != "" {
		hash = &u.PasswordHash
	}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO users (id, name, email, image, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, u.ID, u.Name, u.Email, u.Image, hash).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, uniqueViolation(err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_name_key":
			return ErrNameTaken
		case "users_email_key", "users_email_lower_key":
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("failed to insert user: %w", err)
}

// UpsertAccount runs in one transaction: a failed link leaves no user
// behind. When a concurrent first sign-in for the same account wins, this
// call rolls back and returns the winner's user.
func (s *PGStore) UpsertAccount(ctx context.Context, acct Account) (User, error) {
	acct.Email = normalizeEmail(acct.Email)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	userID, err := linkedUserID(ctx, tx, acct)
	if err == nil {
		return s.GetByID(ctx, userID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("failed to look up account: %w", err)
	}

	u, err := createAccountUser(ctx, tx, acct)
	if err != nil {
		return User{}, err
	}

	var linked string
	err = tx.QueryRow(ctx, `
		INSERT INTO accounts (provider, provider_account_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, provider_account_id) DO NOTHING
		RETURNING user_id
	`, acct.Provider, acct.ProviderAccountID, u.ID).Scan(&linked)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: drop our user and return the one that was linked.
		if err := tx.Rollback(ctx); err != nil {
			return User{}, fmt.Errorf("failed to roll back: %w", err)
		}
		userID, err := linkedUserID(ctx, s.DB, acct)
		if err != nil {
			return User{}, fmt.Errorf("failed to look up account: %w", err)
		}
		return s.GetByID(ctx, userID)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to link account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("failed to commit account: %w", err)
	}
	return u, nil
}

func linkedUserID(ctx context.Context, q db.Querier, acct Account) (string, error) {
	var userID string
	err := q.QueryRow(ctx,
		`SELECT user_id FROM accounts WHERE provider = $1 AND provider_account_id = $2`,
		acct.Provider, acct.ProviderAccountID,
	).Scan(&userID)
	return userID, err
}

// createAccountUser inserts the user for a first sign-in. Each attempt runs
// in a savepoint so a unique violation does not abort tx.
func createAccountUser(ctx context.Context, tx pgx.Tx, acct Account) (User, error) {
	u := User{ID: uuid.New().String()}
	if acct.Image != "" {
		u.Image = &acct.Image
	}
	if acct.Email != "" {
		u.Email = &acct.Email
	}
	// Display names are unique; disambiguate provider names that collide.
	name := acct.Name
	var cerr error
	for attempt := 0; attempt < 3; attempt++ {
		u.Name = &name
		sp, err := tx.Begin(ctx)
		if err != nil {
			return User{}, fmt.Errorf("failed to begin savepoint: %w", err)
		}
		var created User
		created, cerr = (&PGStore{DB: sp}).Create(ctx, u)
		if cerr == nil {
			if err := sp.Commit(ctx); err != nil {
				return User{}, fmt.Errorf("failed to release savepoint: %w", err)
			}
			return created, nil
		}
		if err := sp.Rollback(ctx); err != nil {
			return User{}, fmt.Errorf("failed to roll back savepoint: %w", err)
		}
		if errors.Is(cerr, ErrEmailTaken) {
			// Same person signing in through a second provider: keep the
			// email on the original account only.
			u.Email = nil
			continue
		}
		if !errors.Is(cerr, ErrNameTaken) {
			return User{}, cerr
		}
		name = acct.Name + "-" + uuid.New().String()[:4]
	}
	return User{}, cerr
}
