// Package aggregator implements the Multi-Source Data Aggregator
// (component E): given a logical data request, it queries an ordered list
// of providers until one succeeds, honoring per-provider rate limits and
// returning cached results when fresh.
package aggregator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator/cache"
	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator/ratelimit"
	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

// cooldownStore tracks providers taken offline after a PermanentUnavailable
// response, per spec §4.5 step 2c.
type cooldownStore struct {
	cooldownUntil map[string]time.Time
}

func newCooldownStore() *cooldownStore {
	return &cooldownStore{cooldownUntil: make(map[string]time.Time)}
}

func (c *cooldownStore) isCoolingDown(providerID string, now time.Time) bool {
	until, ok := c.cooldownUntil[providerID]
	return ok && now.Before(until)
}

func (c *cooldownStore) markUnavailable(providerID string, now time.Time, cooldown time.Duration) {
	c.cooldownUntil[providerID] = now.Add(cooldown)
}

// Config parameterizes the aggregator.
type Config struct {
	ProviderCooldown time.Duration
	CacheTTL         func(operation string) time.Duration
}

// Aggregator executes the fallback algorithm over an ordered provider list.
type Aggregator struct {
	providers []Provider
	cache     *cache.Cache
	limits    *ratelimit.Manager
	cooldowns *cooldownStore
	cfg       Config
	logger    telemetry.Logger
	metrics   telemetry.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(a *Aggregator) { a.logger = l } }

// WithMetrics overrides the default no-op metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(a *Aggregator) { a.metrics = m } }

// New constructs an Aggregator. providers must already be in their fixed
// preference order; fallback is deterministic, never reordered at runtime.
func New(providers []Provider, c *cache.Cache, limits *ratelimit.Manager, cfg Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		providers: providers,
		cache:     c,
		limits:    limits,
		cooldowns: newCooldownStore(),
		cfg:       cfg,
		logger:    telemetry.NewNoopLogger(),
		metrics:   telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Fingerprint computes the cache key for an (operation, parameters) pair:
// parameters are sorted by key before hashing so insertion order never
// affects the fingerprint.
func Fingerprint(operation string, parameters map[string]string) string {
	keys := make([]string, 0, len(parameters))
	for k := range parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	normalized := struct {
		Operation string            `json:"operation"`
		Params    map[string]string `json:"params"`
	}{Operation: operation, Params: parameters}
	encoded, _ := json.Marshal(normalized)

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// cacheEntry is what Aggregator actually stores in the cache: the
// provider's data alongside the fetch-time facts (source, timestamp,
// fallback chain) that metadata must keep reporting on every cache hit.
type cacheEntry struct {
	Result        NormalizedResult
	Source        string
	FetchedAt     time.Time
	FallbackChain []string
}

// Fetch runs the fallback algorithm for (operation, parameters), honoring
// deadline, and returns the normalized result wrapped in its metadata
// envelope (source, fetchedAt, cacheHit, fallbackChain).
func (a *Aggregator) Fetch(ctx context.Context, operation string, parameters map[string]string, deadline time.Time) (Result, error) {
	fingerprint := Fingerprint(operation, parameters)
	ttl := 5 * time.Minute
	if a.cfg.CacheTTL != nil {
		ttl = a.cfg.CacheTTL(operation)
	}

	value, cacheHit, err := a.cache.GetOrFetch(ctx, fingerprint, ttl, func(ctx context.Context) (any, error) {
		result, attempted, err := a.fetchFromProviders(ctx, operation, parameters, deadline)
		if err != nil {
			return nil, err
		}
		source := ""
		if len(attempted) > 0 {
			source = attempted[len(attempted)-1]
		}
		return cacheEntry{
			Result:        result,
			Source:        source,
			FetchedAt:     time.Now(),
			FallbackChain: attempted,
		}, nil
	})
	if err != nil {
		return Result{}, err
	}

	entry := value.(cacheEntry)
	source := entry.Source
	if cacheHit {
		source = "cache"
	}
	return Result{
		Data: entry.Result.Data,
		Metadata: Metadata{
			Source:        source,
			FetchedAt:     entry.FetchedAt,
			CacheHit:      cacheHit,
			FallbackChain: entry.FallbackChain,
		},
	}, nil
}

// fetchFromProviders runs the fallback chain once, returning the providers
// actually attempted (Fetch called on them) in order, for fallbackChain.
func (a *Aggregator) fetchFromProviders(ctx context.Context, operation string, parameters map[string]string, deadline time.Time) (NormalizedResult, []string, error) {
	breakdown := make(map[string]string, len(a.providers))
	now := time.Now()
	var attempted []string

	for _, p := range a.providers {
		if !p.Supports(operation, parameters) {
			continue
		}
		if a.cooldowns.isCoolingDown(p.ID(), now) {
			breakdown[p.ID()] = "cooling_down"
			continue
		}
		if !a.limits.TryConsume(p.ID()) {
			breakdown[p.ID()] = "rate_limited"
			continue
		}

		attempted = append(attempted, p.ID())

		raw, err := p.Fetch(ctx, operation, parameters, deadline)
		if err != nil {
			var pe *ProviderError
			if !asProviderError(err, &pe) {
				breakdown[p.ID()] = err.Error()
				continue
			}
			switch pe.Kind {
			case ErrNotFound:
				return NormalizedResult{}, attempted, ferrors.New(ferrors.KindDataNotFound, "data not found for "+operation)
			case ErrPermanentUnavailable:
				a.cooldowns.markUnavailable(p.ID(), now, a.cfg.ProviderCooldown)
				breakdown[p.ID()] = "permanently_unavailable"
				continue
			case ErrRateLimited, ErrTransient:
				breakdown[p.ID()] = pe.Error()
				continue
			default:
				breakdown[p.ID()] = pe.Error()
				continue
			}
		}

		result, err := p.Normalize(raw)
		if err != nil {
			breakdown[p.ID()] = "malformed: " + err.Error()
			continue
		}
		return result, attempted, nil
	}

	return NormalizedResult{}, attempted, ferrors.New(ferrors.KindAllProvidersFailed, "no provider satisfied "+operation).WithData(breakdown)
}

func asProviderError(err error, target **ProviderError) bool {
	pe, ok := err.(*ProviderError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
