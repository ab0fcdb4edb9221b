// Package window provides a QuotaBackend enforcing per-principal,
// per-action allotments over a sliding accounting window.
package window

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Limit is the allotment for one action: at most Count admissions per
// Window, replenished continuously.
type Limit struct {
	Count  int
	Window time.Duration
}

// Backend tracks one rate limiter per (principal, action) pair.
// Admission goes through the limiter's atomic token accounting, so
// concurrent calls for the same pair cannot over-admit.
type Backend struct {
	mu       sync.Mutex
	limits   map[string]Limit
	limiters map[limiterKey]*rate.Limiter
}

type limiterKey struct {
	principal string
	action    string
}

// New creates a backend from an action -> limit map. Actions without a
// configured limit are unmetered.
func New(limits map[string]Limit) *Backend {
	m := make(map[string]Limit, len(limits))
	for action, l := range limits {
		m[action] = l
	}
	return &Backend{
		limits:   m,
		limiters: make(map[limiterKey]*rate.Limiter),
	}
}

// TryConsume admits one unit for principal and action, or reports
// exhaustion without side effects.
func (b *Backend) TryConsume(_ context.Context, principal, action string) bool {
	limit, metered := b.limits[action]
	if !metered {
		return true
	}
	if limit.Count <= 0 {
		return false
	}
	return b.limiter(principal, action, limit).Allow()
}

func (b *Backend) limiter(principal, action string, limit Limit) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := limiterKey{principal: principal, action: action}
	if l, ok := b.limiters[key]; ok {
		return l
	}
	window := limit.Window
	if window <= 0 {
		window = time.Hour
	}
	l := rate.NewLimiter(rate.Every(window/time.Duration(limit.Count)), limit.Count)
	b.limiters[key] = l
	return l
}

var _ ports.QuotaBackend = (*Backend)(nil)
