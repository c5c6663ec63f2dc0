package user

import (
	"context"

	"github.com/sudo-init-do/chirp/internal/apperr"
)

// ListLimit caps every multi-user read.
const ListLimit = 100

// Service answers profile lookups. Every result is projected; raw User
// records never leave this package through it.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	if id == "" {
		return Profile{}, apperr.InvalidInput("id", "id is required")
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return Project(u), nil
}

func (s *Service) GetByName(ctx context.Context, name string) (Profile, error) {
	if name == "" {
		return Profile{}, apperr.InvalidInput("name", "name is required")
	}
	u, err := s.store.GetByName(ctx, name)
	if err != nil {
		return Profile{}, err
	}
	return Project(u), nil
}

func (s *Service) GetAll(ctx context.Context) ([]Profile, error) {
	users, err := s.store.List(ctx, ListLimit)
	if err != nil {
		return nil, err
	}
	return ProjectAll(users), nil
}

// ProfilesByIDs resolves post creators. IDs that match no user are absent
// from the result; the caller decides whether that is an error.
func (s *Service) ProfilesByIDs(ctx context.Context, ids []string, limit int) ([]Profile, error) {
	users, err := s.store.ListByIDs(ctx, ids, limit)
	if err != nil {
		return nil, err
	}
	return ProjectAll(users), nil
}
