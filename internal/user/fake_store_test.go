package user

import (
	"context"
	"errors"
	"sort"

	"github.com/sudo-init-do/chirp/internal/apperr"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	users []User
	err   error
}

func strPtr(s string) *string { return &s }

func (m *memStore) find(match func(User) bool, what string) (User, error) {
	if m.err != nil {
		return User{}, m.err
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, apperr.NotFound("user %s not found", what)
}

func (m *memStore) GetByID(_ context.Context, id string) (User, error) {
	return m.find(func(u User) bool { return u.ID == id }, id)
}

func (m *memStore) GetByName(_ context.Context, name string) (User, error) {
	return m.find(func(u User) bool { return u.Name != nil && *u.Name == name }, name)
}

func (m *memStore) GetByEmail(_ context.Context, email string) (User, error) {
	return m.find(func(u User) bool { return u.Email != nil && *u.Email == email }, email)
}

func (m *memStore) List(_ context.Context, limit int) ([]User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := append([]User(nil), m.users...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListByIDs(_ context.Context, ids []string, limit int) ([]User, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []User{}
	for _, u := range m.users {
		if want[u.ID] && len(out) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, u User) (User, error) {
	for _, existing := range m.users {
		if u.Name != nil && existing.Name != nil && *existing.Name == *u.Name {
			return User{}, ErrNameTaken
		}
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memStore) UpsertAccount(context.Context, Account) (User, error) {
	return User{}, errors.New("not implemented")
}
