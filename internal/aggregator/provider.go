package aggregator

import (
	"context"
	"time"
)

// ProviderErrorKind classifies why a provider's Fetch failed, per spec
// §4.5's provider abstraction.
type ProviderErrorKind int

const (
	// ErrUnknown is the zero value; never intentionally raised.
	ErrUnknown ProviderErrorKind = iota
	// ErrRateLimited means the provider's own budget was exhausted.
	ErrRateLimited
	// ErrTransient means a retryable upstream failure (network, timeout, 5xx).
	ErrTransient
	// ErrPermanentUnavailable means the provider should be cooled down.
	ErrPermanentUnavailable
	// ErrNotFound means the data is canonically absent, not a provider fault.
	ErrNotFound
	// ErrMalformed means the provider responded but Normalize could not
	// make sense of it.
	ErrMalformed
)

// ProviderError is a typed failure from a Provider's Fetch or Normalize.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// RawResponse is the unnormalized payload a provider's Fetch returns.
type RawResponse struct {
	Body []byte
}

// NormalizedResult is a provider-agnostic, cacheable result.
type NormalizedResult struct {
	Operation string
	Data      any
}

// Metadata describes how a Result was produced: which provider (or the
// cache) supplied it, when it was fetched, and which providers were
// attempted first.
type Metadata struct {
	Source        string
	FetchedAt     time.Time
	CacheHit      bool
	FallbackChain []string
}

// Result is the envelope Aggregator.Fetch returns: the provider's data
// plus the metadata spec §4.5 mandates on every response.
type Result struct {
	Data     any
	Metadata Metadata
}

// Provider is one upstream data source in the fallback chain.
type Provider interface {
	// ID uniquely names this provider for rate-limit and cooldown bookkeeping.
	ID() string
	// Supports reports whether this provider can serve operation with parameters.
	Supports(operation string, parameters map[string]string) bool
	// Fetch retrieves raw data, honoring deadline.
	Fetch(ctx context.Context, operation string, parameters map[string]string, deadline time.Time) (RawResponse, error)
	// Normalize converts a successful Fetch's response into a NormalizedResult.
	Normalize(raw RawResponse) (NormalizedResult, error)
}
