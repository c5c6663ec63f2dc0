package post

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/chirp/internal/apperr"
	"github.com/sudo-init-do/chirp/internal/logging"
	"github.com/sudo-init-do/chirp/internal/metrics"
	"github.com/sudo-init-do/chirp/internal/ratelimit"
	"github.com/sudo-init-do/chirp/internal/user"
	"github.com/sudo-init-do/chirp/internal/validation"
)

const (
	// FeedLimit caps the posts returned by one feed read. There is no
	// pagination; older posts are not reachable through the feed.
	FeedLimit = 100
	// CreatorBatchLimit caps the creators fetched for one feed read.
	CreatorBatchLimit = 100
)

// CreatorLookup resolves creator IDs to public profiles.
type CreatorLookup interface {
	ProfilesByIDs(ctx context.Context, ids []string, limit int) ([]user.Profile, error)
}

// Publisher is notified after a post has been persisted.
type Publisher interface {
	PublishPost(ctx context.Context, p Post)
}

type Service struct {
	posts     Store
	creators  CreatorLookup
	limiter   ratelimit.Limiter
	publisher Publisher
	now       func() time.Time
	newID     func() string

	// limit and window only shape the message shown to rate limited callers;
	// enforcement belongs to the limiter.
	limit  int
	window time.Duration
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRateLimitPolicy(limit int, window time.Duration) Option {
	return func(s *Service) {
		s.limit = limit
		s.window = window
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(posts Store, creators CreatorLookup, limiter ratelimit.Limiter, opts ...Option) *Service {
	s := &Service{
		posts:    posts,
		creators: creators,
		limiter:  limiter,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		limit:    ratelimit.DefaultLimit,
		window:   ratelimit.DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns the newest posts with their creators. creatorID narrows
// the feed to one creator when non-empty.
func (s *Service) GetAll(ctx context.Context, creatorID string) ([]Joined, error) {
	posts, err := s.posts.ListRecent(ctx, creatorID, FeedLimit)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []Joined{}, nil
	}

	creators, err := s.creators.ProfilesByIDs(ctx, creatorIDs(posts), CreatorBatchLimit)
	if err != nil {
		return nil, err
	}
	joined, err := Join(posts, creators)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int("posts", len(posts)).Msg("feed references unknown creator")
		return nil, err
	}
	return joined, nil
}

// GetByUserID is GetAll for one creator.
func (s *Service) GetByUserID(ctx context.Context, creatorID string) ([]Joined, error) {
	if creatorID == "" {
		return nil, apperr.InvalidInput("creator_id", "creator_id is required")
	}
	return s.GetAll(ctx, creatorID)
}

func (s *Service) GetByID(ctx context.Context, id string) (Joined, error) {
	if id == "" {
		return Joined{}, apperr.InvalidInput("id", "id is required")
	}
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return Joined{}, err
	}
	creators, err := s.creators.ProfilesByIDs(ctx, []string{p.CreatorID}, 1)
	if err != nil {
		return Joined{}, err
	}
	joined, err := Join([]Post{p}, creators)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("post_id", p.ID).Msg("post references unknown creator")
		return Joined{}, err
	}
	return joined[0], nil
}

type createInput struct {
	Content string `json:"content" validate:"required,utf8,min=1,max=255"`
}

// Create stores a post authored by creatorID. Validation runs before the
// rate limit check, and nothing is written unless both pass. A limiter
// failure rejects the post.
func (s *Service) Create(ctx context.Context, creatorID, content string) (Post, error) {
	if creatorID == "" {
		return Post{}, apperr.Unauthenticated("sign in to post")
	}
	if err := validation.Struct(&createInput{Content: content}); err != nil {
		return Post{}, err
	}

	allowed, err := s.limiter.Allow(ctx, creatorID)
	if err != nil {
		metrics.RateLimitDecision("error")
		logging.Ctx(ctx).Error().Err(err).Str("creator_id", creatorID).Msg("rate limiter unavailable")
		return Post{}, apperr.Unavailable("posting is temporarily unavailable", err)
	}
	if !allowed {
		metrics.RateLimitDecision("denied")
		return Post{}, apperr.RateLimited(fmt.Sprintf(
			"you are posting too fast: at most %d posts per %d seconds", s.limit, int(s.window.Seconds())))
	}
	metrics.RateLimitDecision("allowed")

	p, err := s.posts.Create(ctx, Post{
		ID:        s.newID(),
		CreatorID: creatorID,
		Content:   content,
		// Postgres stores microseconds; truncating keeps the returned value
		// equal to what a later read sees.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return Post{}, err
	}
	metrics.PostsCreated.Inc()
	logging.Ctx(ctx).Info().Str("post_id", p.ID).Str("creator_id", creatorID).Msg("post created")

	if s.publisher != nil {
		s.publisher.PublishPost(ctx, p)
	}
	return p, nil
}
