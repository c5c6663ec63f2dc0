package post

import (
	"errors"
	"testing"
	"time"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/user"
)

func TestJoin_PreservesOrder(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	posts := []Post{
		{ID: "p3", CreatorID: "u2", Content: "third", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "p1", CreatorID: "u1", Content: "first", CreatedAt: t0},
		{ID: "p2", CreatorID: "u2", Content: "second", CreatedAt: t0.Add(time.Minute)},
	}
	creators := []user.Profile{
		{ID: "u2", Name: "bob"},
		{ID: "u1", Name: "alice"},
		{ID: "u9", Name: "unrelated"},
	}

	got, err := Join(posts, creators)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if len(got) != len(posts) {
		t.Fatalf("len = %d, want %d", len(got), len(posts))
	}
	for i, j := range got {
		if j.Post != posts[i] {
			t.Errorf("got[%d].Post = %+v, want %+v", i, j.Post, posts[i])
		}
		if j.Creator.ID != posts[i].CreatorID {
			t.Errorf("got[%d].Creator.ID = %s, want %s", i, j.Creator.ID, posts[i].CreatorID)
		}
	}
}

func TestJoin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		creators []user.Profile
	}{
		{name: "creator missing", creators: []user.Profile{{ID: "u2", Name: "bob"}}},
		{name: "creator without name", creators: []user.Profile{{ID: "u1", Name: ""}}},
		{name: "no creators", creators: nil},
	}
	posts := []Post{{ID: "p1", CreatorID: "u1", Content: "hello"}}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Join(posts, tt.creators)
			if !errors.Is(err, apperr.ErrCreatorNotFound) {
				t.Fatalf("Join() error = %v, want CREATOR_NOT_FOUND", err)
			}
			if got != nil {
				t.Errorf("Join() returned partial result %+v", got)
			}
		})
	}
}

func TestJoin_OneBadPostFailsAll(t *testing.T) {
	t.Parallel()

	posts := []Post{
		{ID: "p1", CreatorID: "u1"},
		{ID: "p2", CreatorID: "ghost"},
	}
	_, err := Join(posts, []user.Profile{{ID: "u1", Name: "alice"}})
	if apperr.CodeOf(err) != apperr.CodeCreatorNotFound {
		t.Errorf("Join() error = %v, want CREATOR_NOT_FOUND", err)
	}
}

func TestJoin_Empty(t *testing.T) {
	t.Parallel()

	got, err := Join(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Join(nil) = %#v, want empty slice", got)
	}
}

func TestCreatorIDs_Distinct(t *testing.T) {
	t.Parallel()

	ids := creatorIDs([]Post{{CreatorID: "u2"}, {CreatorID: "u1"}, {CreatorID: "u2"}})
	if len(ids) != 2 || ids[0] != "u2" || ids[1] != "u1" {
		t.Errorf("creatorIDs() = %v, want [u2 u1]", ids)
	}
}
