// Package breaker wraps github.com/sony/gobreaker with Fin-Hub's
// per-(toolName, instanceId) keying and selective failure classification:
// only retryable spoke-side failures trip the breaker, client-input
// errors never do.
package breaker

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Manager owns one gobreaker.CircuitBreaker per (toolName, instanceId)
// pair, created lazily on first dispatch.
type Manager struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	failureThreshold uint32
	cooldown         time.Duration
}

// NewManager constructs a Manager. failureThreshold is the consecutive
// failure count that trips Closed -> Open; cooldown is the Open -> HalfOpen
// wait.
func NewManager(failureThreshold int, cooldown time.Duration) *Manager {
	return &Manager{
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
		failureThreshold: uint32(failureThreshold),
		cooldown:         cooldown,
	}
}

func key(toolName, instanceID string) string {
	return toolName + "|" + instanceID
}

func (m *Manager) breaker(toolName, instanceID string) *gobreaker.CircuitBreaker {
	k := key(toolName, instanceID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[k]; ok {
		return b
	}
	threshold := m.failureThreshold
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: k,
		// MaxRequests = 1 enforces "at most one probe in flight" in
		// HalfOpen, matching the breaker's half-open contract directly.
		MaxRequests: 1,
		// Interval = 0 never clears Closed-state counts on a timer; only
		// a success resets ConsecutiveFailures, matching the spec's
		// "reset consecutiveFailures on success" rule rather than a
		// wall-clock rolling window.
		Interval: 0,
		Timeout:  m.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	m.breakers[k] = b
	return b
}

// State reports the breaker's current state for (toolName, instanceId).
func (m *Manager) State(toolName, instanceID string) gobreaker.State {
	return m.breaker(toolName, instanceID).State()
}

// EvictInstance drops every breaker keyed by instanceID across all tools,
// called when the registry removes the instance.
func (m *Manager) EvictInstance(instanceID string) {
	suffix := "|" + instanceID
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.breakers {
		if len(k) > len(suffix) && k[len(k)-len(suffix):] == suffix {
			delete(m.breakers, k)
		}
	}
}

// Outcome classifies the result of a call attempted through a breaker.
type Outcome int

const (
	// OutcomeOK means the call ran and is reported to the caller normally.
	OutcomeOK Outcome = iota
	// OutcomeFiltered means the breaker refused the call (Open, or
	// HalfOpen with a probe already in flight): the caller should treat
	// this instance as unavailable and try another, without consuming a
	// retry attempt.
	OutcomeFiltered
)

// Execute runs fn through the breaker for (toolName, instanceID).
// isRetryable classifies fn's returned error: retryable errors are
// reported to gobreaker (and so count toward tripping); non-retryable
// errors (client-input validation, application-level tool errors) are
// reported to gobreaker as a success, so they never count toward tripping
// but do reset the consecutive-failure count and close a HalfOpen breaker.
func Execute[T any](m *Manager, toolName, instanceID string, isRetryable func(error) bool, fn func() (T, error)) (T, error, Outcome) {
	b := m.breaker(toolName, instanceID)

	var nonBreakerErr error
	var zero T
	raw, err := b.Execute(func() (any, error) {
		res, ferr := fn()
		if ferr != nil && !isRetryable(ferr) {
			nonBreakerErr = ferr
			return res, nil
		}
		return res, ferr
	})

	if nonBreakerErr != nil {
		if res, ok := raw.(T); ok {
			return res, nonBreakerErr, OutcomeOK
		}
		return zero, nonBreakerErr, OutcomeOK
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return zero, err, OutcomeFiltered
	}
	if err != nil {
		return zero, err, OutcomeOK
	}
	res, _ := raw.(T)
	return res, nil, OutcomeOK
}
