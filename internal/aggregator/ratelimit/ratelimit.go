// Package ratelimit implements the aggregator's per-provider token bucket
// (spec §4.5), adapted from the adaptive tokens-per-minute limiter used at
// the model-client boundary elsewhere in the stack: same golang.org/x/time/rate
// foundation, but a fixed capacity/refill budget rather than an AIMD-adjusted
// one, since providers here signal RateLimited explicitly rather than via
// inferred backoff.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Budget is one provider's token bucket: capacity tokens, refilled lazily
// at refillPerSecond. rate.Limiter is already safe for concurrent use, so
// Budget adds no locking of its own; that is also what keeps refill
// conservative under contention — x/time/rate never lets a racing pair of
// callers both observe the same token.
type Budget struct {
	limiter *rate.Limiter
}

// NewBudget constructs a Budget with the given capacity and refill rate.
func NewBudget(capacity int, refillPerSecond float64) *Budget {
	if capacity < 1 {
		capacity = 1
	}
	return &Budget{limiter: rate.NewLimiter(rate.Limit(refillPerSecond), capacity)}
}

// TryConsume attempts to take one token without blocking. False means the
// bucket is empty and the caller should treat this as RateLimited without
// calling upstream.
func (b *Budget) TryConsume() bool {
	return b.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (b *Budget) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Manager owns one Budget per provider id, keyed by the provider's
// configuration name.
type Manager struct {
	mu      sync.Mutex
	budgets map[string]*Budget
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{budgets: make(map[string]*Budget)}
}

// Configure sets (or replaces) the budget for providerID.
func (m *Manager) Configure(providerID string, capacity int, refillPerSecond float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[providerID] = NewBudget(capacity, refillPerSecond)
}

// TryConsume consumes one token from providerID's budget. An unconfigured
// provider is treated as unlimited (returns true) since a missing budget
// means the operator never rate-limited it.
func (m *Manager) TryConsume(providerID string) bool {
	m.mu.Lock()
	b, ok := m.budgets[providerID]
	m.mu.Unlock()
	if !ok {
		return true
	}
	return b.TryConsume()
}
