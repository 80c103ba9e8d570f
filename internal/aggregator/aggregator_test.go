package aggregator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator"
	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator/cache"
	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator/ratelimit"
	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
)

type scriptedProvider struct {
	id       string
	supports bool
	fetchErr error
	raw      aggregator.RawResponse
	normErr  error
	result   aggregator.NormalizedResult
	calls    int
}

func (p *scriptedProvider) ID() string { return p.id }

func (p *scriptedProvider) Supports(string, map[string]string) bool {
	return p.supports
}

func (p *scriptedProvider) Fetch(context.Context, string, map[string]string, time.Time) (aggregator.RawResponse, error) {
	p.calls++
	if p.fetchErr != nil {
		return aggregator.RawResponse{}, p.fetchErr
	}
	return p.raw, nil
}
func (p *scriptedProvider) Normalize(aggregator.RawResponse) (aggregator.NormalizedResult, error) {
	if p.normErr != nil {
		return aggregator.NormalizedResult{}, p.normErr
	}
	return p.result, nil
}

func newAggregator(t *testing.T, providers []aggregator.Provider) (*aggregator.Aggregator, *ratelimit.Manager) {
	t.Helper()
	c, err := cache.New(100)
	require.NoError(t, err)
	limits := ratelimit.NewManager()
	return aggregator.New(providers, c, limits, aggregator.Config{ProviderCooldown: time.Minute}), limits
}

func TestFetchReturnsFirstSucceedingProvider(t *testing.T) {
	alpha := &scriptedProvider{id: "alpha", supports: true, fetchErr: &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: "down"}}
	beta := &scriptedProvider{id: "beta", supports: true, result: aggregator.NormalizedResult{Operation: "quote", Data: "ok"}}

	agg, _ := newAggregator(t, []aggregator.Provider{alpha, beta})
	result, err := agg.Fetch(context.Background(), "quote", map[string]string{"symbol": "AAPL"}, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Data)
	assert.Equal(t, 1, alpha.calls)
	assert.Equal(t, 1, beta.calls)
}

func TestFetchStopsOnNotFoundWithoutTryingLaterProviders(t *testing.T) {
	alpha := &scriptedProvider{id: "alpha", supports: true, fetchErr: &aggregator.ProviderError{Kind: aggregator.ErrNotFound}}
	beta := &scriptedProvider{id: "beta", supports: true, result: aggregator.NormalizedResult{Operation: "quote", Data: "ok"}}

	agg, _ := newAggregator(t, []aggregator.Provider{alpha, beta})
	_, err := agg.Fetch(context.Background(), "quote", map[string]string{"symbol": "ZZZZ"}, time.Now().Add(time.Second))
	require.Error(t, err)
	assert.Equal(t, ferrors.KindDataNotFound, ferrors.KindOf(err))
	assert.Equal(t, 0, beta.calls)
}

func TestFetchReturnsAllProvidersFailedWhenExhausted(t *testing.T) {
	alpha := &scriptedProvider{id: "alpha", supports: true, fetchErr: &aggregator.ProviderError{Kind: aggregator.ErrTransient}}
	beta := &scriptedProvider{id: "beta", supports: true, fetchErr: &aggregator.ProviderError{Kind: aggregator.ErrTransient}}

	agg, _ := newAggregator(t, []aggregator.Provider{alpha, beta})
	_, err := agg.Fetch(context.Background(), "quote", map[string]string{"symbol": "AAPL"}, time.Now().Add(time.Second))
	require.Error(t, err)
	assert.Equal(t, ferrors.KindAllProvidersFailed, ferrors.KindOf(err))
}

func TestFetchSkipsUnsupportingProviders(t *testing.T) {
	alpha := &scriptedProvider{id: "alpha", supports: false}
	beta := &scriptedProvider{id: "beta", supports: true, result: aggregator.NormalizedResult{Operation: "news", Data: "headline"}}

	agg, _ := newAggregator(t, []aggregator.Provider{alpha, beta})
	result, err := agg.Fetch(context.Background(), "news", map[string]string{}, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "headline", result.Data)
	assert.Equal(t, 0, alpha.calls)
}

func TestFetchTreatsExhaustedBudgetAsRateLimitedWithoutCallingUpstream(t *testing.T) {
	alpha := &scriptedProvider{id: "alpha", supports: true, result: aggregator.NormalizedResult{Operation: "quote", Data: "unreached"}}
	beta := &scriptedProvider{id: "beta", supports: true, result: aggregator.NormalizedResult{Operation: "quote", Data: "ok"}}

	agg, limits := newAggregator(t, []aggregator.Provider{alpha, beta})
	limits.Configure("alpha", 1, 0.0001)
	limits.TryConsume("alpha") // exhaust the single token before Fetch runs

	result, err := agg.Fetch(context.Background(), "quote", map[string]string{"symbol": "MSFT"}, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Data)
	assert.Equal(t, 0, alpha.calls)
}

func TestFetchCachesSuccessAcrossCalls(t *testing.T) {
	alpha := &scriptedProvider{id: "alpha", supports: true, result: aggregator.NormalizedResult{Operation: "quote", Data: "cached"}}
	agg, _ := newAggregator(t, []aggregator.Provider{alpha})

	_, err := agg.Fetch(context.Background(), "quote", map[string]string{"symbol": "AAPL"}, time.Now().Add(time.Second))
	require.NoError(t, err)
	_, err = agg.Fetch(context.Background(), "quote", map[string]string{"symbol": "AAPL"}, time.Now().Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, 1, alpha.calls)
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	fp1 := aggregator.Fingerprint("quote", map[string]string{"symbol": "AAPL", "exchange": "NASDAQ"})
	fp2 := aggregator.Fingerprint("quote", map[string]string{"exchange": "NASDAQ", "symbol": "AAPL"})
	assert.Equal(t, fp1, fp2)
}
