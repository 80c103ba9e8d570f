package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Songjaeheon0923/Fin-Hub/internal/aggregator"
)

// BetaProvider is a fallback quote provider, tried after AlphaProvider in
// the default order. Its wire shape differs from alpha's (nested
// "quote" object, cents-denominated price) to exercise Normalize
// independently per provider.
type BetaProvider struct {
	BaseURL    string
	Credential string
	HTTPClient *http.Client
}

// NewBetaProvider constructs a BetaProvider, defaulting httpClient to
// http.DefaultClient when nil.
func NewBetaProvider(baseURL, credential string, httpClient *http.Client) *BetaProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BetaProvider{BaseURL: baseURL, Credential: credential, HTTPClient: httpClient}
}

// ID implements aggregator.Provider.
func (p *BetaProvider) ID() string { return "beta" }

// Supports implements aggregator.Provider.
func (p *BetaProvider) Supports(operation string, parameters map[string]string) bool {
	return operation == "quote" && parameters["symbol"] != ""
}

// Fetch implements aggregator.Provider.
func (p *BetaProvider) Fetch(ctx context.Context, operation string, parameters map[string]string, deadline time.Time) (aggregator.RawResponse, error) {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	url := fmt.Sprintf("%s/quotes/%s", p.BaseURL, parameters["symbol"])
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: "build request", Cause: err}
	}
	if p.Credential != "" {
		req.Header.Set("X-Api-Key", p.Credential)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrNotFound, Message: "symbol not found"}
	case http.StatusTooManyRequests:
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrRateLimited, Message: "beta rate limited"}
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrPermanentUnavailable, Message: "beta unavailable"}
	default:
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: "read response", Cause: err}
	}
	return aggregator.RawResponse{Body: body}, nil
}

type betaQuoteEnvelope struct {
	Quote struct {
		Ticker    string `json:"ticker"`
		PriceCent int64  `json:"price_cents"`
		Timestamp int64  `json:"ts"`
	} `json:"quote"`
}

// Normalize implements aggregator.Provider.
func (p *BetaProvider) Normalize(raw aggregator.RawResponse) (aggregator.NormalizedResult, error) {
	var env betaQuoteEnvelope
	if err := json.Unmarshal(raw.Body, &env); err != nil {
		return aggregator.NormalizedResult{}, &aggregator.ProviderError{Kind: aggregator.ErrMalformed, Message: "malformed beta response", Cause: err}
	}
	return aggregator.NormalizedResult{
		Operation: "quote",
		Data: map[string]any{
			"symbol": env.Quote.Ticker,
			"price":  float64(env.Quote.PriceCent) / 100.0,
			"asOf":   env.Quote.Timestamp,
			"source": "beta",
		},
	}, nil
}
