package post

import (
	"context"
	"sort"
	"sync"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/user"
)

type memStore struct {
	mu      sync.Mutex
	posts   []Post
	creates int
	err     error
}

func (m *memStore) ListRecent(_ context.Context, creatorID string, limit int) ([]Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []Post{}
	for _, p := range m.posts {
		if creatorID == "" || p.CreatorID == creatorID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Post{}, m.err
	}
	for _, p := range m.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return Post{}, apperr.NotFound("post %s not found", id)
}

func (m *memStore) Create(_ context.Context, p Post) (Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Post{}, m.err
	}
	m.creates++
	m.posts = append(m.posts, p)
	return p, nil
}

func (m *memStore) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// fakeCreators serves profiles and records the requested batch.
type fakeCreators struct {
	profiles []user.Profile
	lastIDs  []string
	calls    int
	err      error
}

func (f *fakeCreators) ProfilesByIDs(_ context.Context, ids []string, limit int) ([]user.Profile, error) {
	f.calls++
	f.lastIDs = ids
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []user.Profile{}
	for _, p := range f.profiles {
		if want[p.ID] && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

// countingLimiter records calls and answers from a fixed result.
type countingLimiter struct {
	mu    sync.Mutex
	calls int
	allow bool
	err   error
}

func (l *countingLimiter) Allow(context.Context, string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.allow, l.err
}

type recordingPublisher struct {
	published []Post
}

func (r *recordingPublisher) PublishPost(_ context.Context, p Post) {
	r.published = append(r.published, p)
}
