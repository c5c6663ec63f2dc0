package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sudo-init-do/chirp/internal/logging"
)

// slidingWindow keeps one sorted-set member per permitted action, scored by
// its time in milliseconds. Pruning, counting and recording run as a single
// script so concurrent callers for the same key cannot both take the last slot.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

const defaultPrefix = "chirp:ratelimit:"

// Redis is a sliding-window limiter shared by every server instance.
type Redis struct {
	client  redis.Scripter
	limit   int
	window  time.Duration
	prefix  string
	now     func() time.Time
	breaker *gobreaker.CircuitBreaker[bool]
}

type RedisOption func(*Redis)

// WithPrefix sets the key namespace.
func WithPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RedisOption {
	return func(r *Redis) { r.now = now }
}

// WithBreakerSettings overrides the circuit breaker guarding Redis calls.
// When st.IsSuccessful is nil, countsAsSuccess is used.
func WithBreakerSettings(st gobreaker.Settings) RedisOption {
	return func(r *Redis) {
		if st.IsSuccessful == nil {
			st.IsSuccessful = countsAsSuccess
		}
		r.breaker = gobreaker.NewCircuitBreaker[bool](st)
	}
}

// countsAsSuccess treats nil errors and errors caused by the
// caller's context ending as successes, so one impatient client cannot open
// the breaker for everyone.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func NewRedis(client redis.Scripter, limit int, window time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		limit:  limit,
		window: window,
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		log := logging.WithComponent("ratelimit")
		r.breaker = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
			Name:         "redis-ratelimit",
			Timeout:      30 * time.Second,
			IsSuccessful: countsAsSuccess,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("rate limiter circuit breaker state changed")
			},
		})
	}
	return r
}

// Allow returns an error when Redis is unreachable or the breaker is open.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.breaker.Execute(func() (bool, error) {
		now := r.now().UnixMilli()
		member := fmt.Sprintf("%d-%s", now, uuid.New().String())
		res, err := slidingWindow.Run(ctx, r.client,
			[]string{r.prefix + key},
			now, r.window.Milliseconds(), r.limit, member,
		).Int()
		if err != nil {
			return false, fmt.Errorf("rate limit script failed: %w", err)
		}
		return res == 1, nil
	})
}
