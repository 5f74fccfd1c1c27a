// Package ratelimit counts requests per identity in fixed windows.
//
// Counters live behind a Store so a single process can keep them in memory
// while several instances share them through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rule is a named request budget.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	// SkipSuccessful rules only count requests that end in an error status.
	SkipSuccessful bool
	Message        string
}

var (
	General = Rule{Name: "general", Limit: 100, Window: 15 * time.Minute,
		Message: "too many requests, try again later"}
	Auth = Rule{Name: "auth", Limit: 5, Window: 15 * time.Minute, SkipSuccessful: true,
		Message: "too many authentication attempts, try again in 15 minutes"}
	Create = Rule{Name: "create", Limit: 10, Window: time.Hour,
		Message: "creation limit reached, try again in 1 hour"}
	Strict = Rule{Name: "strict", Limit: 3, Window: time.Minute,
		Message: "too many requests for this operation, wait a minute"}
)

func DefaultRules() []Rule {
	return []Rule{General, Auth, Create, Strict}
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the number of whole seconds until the window resets,
// rounded up.
func (r Result) RetryAfter(now time.Time) int {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Store keeps hit counters. Incr must be atomic per key.
type Store interface {
	// Incr counts a hit on key, opening a new window of the given length if
	// none is active, and returns the hits so far and when the window ends.
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
	// Decr takes back one hit from an active window.
	Decr(ctx context.Context, key string) error
}

type Limiter struct {
	store Store
	rules map[string]Rule
}

func New(store Store, rules ...Rule) *Limiter {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	l := &Limiter{store: store, rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		l.rules[r.Name] = r
	}
	return l
}

func (l *Limiter) Rule(name string) (Rule, bool) {
	r, ok := l.rules[name]
	return r, ok
}

func key(rule, identity string) string {
	return rule + ":" + identity
}

// Allow counts a request by identity against the named rule.
func (l *Limiter) Allow(ctx context.Context, identity, ruleName string) (Result, error) {
	rule, ok := l.rules[ruleName]
	if !ok {
		return Result{}, fmt.Errorf("unknown rate limit rule %q", ruleName)
	}
	count, resetAt, err := l.store.Incr(ctx, key(rule.Name, identity), rule.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", rule.Name, err)
	}
	remaining := rule.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Release gives back a hit previously counted by Allow.
func (l *Limiter) Release(ctx context.Context, identity, ruleName string) error {
	rule, ok := l.rules[ruleName]
	if !ok {
		return fmt.Errorf("unknown rate limit rule %q", ruleName)
	}
	return l.store.Decr(ctx, key(rule.Name, identity))
}
