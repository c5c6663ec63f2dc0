//go:build integration

package user

import (
	"context"
	"errors"
	"testing"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/testinfra"
)

func TestPGStore(t *testing.T) {
	store := NewPGStore(testinfra.NewPool(t))
	ctx := context.Background()

	alice, err := store.Create(ctx, User{ID: "u1", Name: strPtr("alice"), Email: strPtr("alice@example.com"), PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if alice.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
	if _, err := store.Create(ctx, User{ID: "u2", Name: strPtr("bob"), Image: strPtr("https://img/b.png")}); err != nil {
		t.Fatal(err)
	}

	t.Run("duplicate name", func(t *testing.T) {
		_, err := store.Create(ctx, User{Name: strPtr("alice")})
		if !errors.Is(err, ErrNameTaken) {
			t.Errorf("err = %v, want ErrNameTaken", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := store.Create(ctx, User{Name: strPtr("carol"), Email: strPtr("alice@example.com")})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("err = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("duplicate email in another case", func(t *testing.T) {
		_, err := store.Create(ctx, User{Name: strPtr("dave"), Email: strPtr(" Alice@Example.COM")})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("err = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("lookups", func(t *testing.T) {
		if u, err := store.GetByID(ctx, "u1"); err != nil || *u.Name != "alice" || u.PasswordHash != "hash" {
			t.Errorf("GetByID = %+v, %v", u, err)
		}
		if u, err := store.GetByName(ctx, "bob"); err != nil || u.ID != "u2" || u.PasswordHash != "" {
			t.Errorf("GetByName = %+v, %v", u, err)
		}
		if u, err := store.GetByEmail(ctx, "ALICE@example.com"); err != nil || u.ID != "u1" {
			t.Errorf("GetByEmail = %+v, %v", u, err)
		}
		if _, err := store.GetByID(ctx, "nobody"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("GetByID(nobody) err = %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		all, err := store.List(ctx, 100)
		if err != nil || len(all) != 2 {
			t.Fatalf("List = %v, %v", all, err)
		}
		some, err := store.ListByIDs(ctx, []string{"u2", "ghost"}, 100)
		if err != nil || len(some) != 1 || some[0].ID != "u2" {
			t.Errorf("ListByIDs = %+v, %v", some, err)
		}
		capped, err := store.ListByIDs(ctx, []string{"u1", "u2"}, 1)
		if err != nil || len(capped) != 1 {
			t.Errorf("ListByIDs capped = %+v, %v", capped, err)
		}
	})

	t.Run("upsert account", func(t *testing.T) {
		acct := Account{Provider: "discord", ProviderAccountID: "42", Name: "alice", Email: "ALICE@example.com"}
		first, err := store.UpsertAccount(ctx, acct)
		if err != nil {
			t.Fatalf("UpsertAccount() error = %v", err)
		}
		if first.ID == "u1" || first.Name == nil || *first.Name == "alice" {
			t.Errorf("colliding name should be disambiguated, got %+v", first)
		}
		if first.Email != nil {
			t.Errorf("email already owned by u1 should be dropped, got %q", *first.Email)
		}

		again, err := store.UpsertAccount(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		if again.ID != first.ID {
			t.Errorf("second sign-in user = %s, want %s", again.ID, first.ID)
		}
	})
}
