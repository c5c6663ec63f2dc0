// Package ratelimit decides whether an identity may perform another action
// within a rolling time window.
//
// Limiters fail closed: when the decision cannot be made, Allow returns an
// error and callers must treat the action as not permitted.
package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultLimit and DefaultWindow allow three posts per rolling minute.
	DefaultLimit  = 3
	DefaultWindow = time.Minute
)

// Limiter reports whether the action keyed by key is permitted now. A true
// result consumes one slot of the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LimiterFunc adapts a function to Limiter.
type LimiterFunc func(ctx context.Context, key string) (bool, error)

func (f LimiterFunc) Allow(ctx context.Context, key string) (bool, error) {
	return f(ctx, key)
}

// AllowAll permits every action.
var AllowAll Limiter = LimiterFunc(func(context.Context, string) (bool, error) { return true, nil })

// DenyAll rejects every action.
var DenyAll Limiter = LimiterFunc(func(context.Context, string) (bool, error) { return false, nil })
