// Package ratelimit implements fixed-window request throttling keyed by
// (action class, identifier). The counting store is injected so the same
// algorithm runs against an in-process map in tests and a shared Redis
// instance in production.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Rule caps an action class at Max observations per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Store holds the per-key window counters. Observe atomically increments
// the counter for the current window, creating or lazily resetting the
// entry; the count never grows past max+1. Lost increments under-throttle,
// so implementations must not use unsynchronized read-modify-write.
type Store interface {
	Observe(ctx context.Context, key string, window time.Duration, max int) (count int, resetAt time.Time, err error)
	Peek(ctx context.Context, key string) (count int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// ErrUnknownClass is returned for an action class without a configured rule.
var ErrUnknownClass = errors.New("ratelimit: unknown action class")

// Limiter applies fixed-window rules per action class.
type Limiter struct {
	store Store
	rules map[string]Rule

	// OnLimited, when set, observes every throttled request per class.
	OnLimited func(class string)
}

// NewLimiter constructs a Limiter over the given store and rule table.
func NewLimiter(store Store, rules map[string]Rule) *Limiter {
	merged := make(map[string]Rule, len(rules))
	for class, rule := range rules {
		merged[class] = rule
	}
	return &Limiter{store: store, rules: merged}
}

// ShouldThrottle records one observation and reports whether the caller
// must be rejected. The nth call with max n returns false, the n+1th true.
func (l *Limiter) ShouldThrottle(ctx context.Context, class, identifier string) (bool, error) {
	rule, ok := l.rules[class]
	if !ok {
		return false, ErrUnknownClass
	}
	count, _, err := l.store.Observe(ctx, key(class, identifier), rule.Window, rule.Max)
	if err != nil {
		return true, err
	}
	return count > rule.Max, nil
}

// Remaining reports how many observations are left in the current window
// and when the window resets, without consuming one.
func (l *Limiter) Remaining(ctx context.Context, class, identifier string) (int, time.Time, error) {
	rule, ok := l.rules[class]
	if !ok {
		return 0, time.Time{}, ErrUnknownClass
	}
	count, resetAt, err := l.store.Peek(ctx, key(class, identifier))
	if err != nil {
		return 0, time.Time{}, err
	}
	left := rule.Max - count
	if left < 0 {
		left = 0
	}
	return left, resetAt, nil
}

// Reset clears the window for a key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, class, identifier string) error {
	return l.store.Reset(ctx, key(class, identifier))
}

// Rule returns the configured rule for an action class.
func (l *Limiter) Rule(class string) (Rule, bool) {
	rule, ok := l.rules[class]
	return rule, ok
}

func key(class, identifier string) string {
	return class + ":" + identifier
}
