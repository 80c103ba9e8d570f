// Package quote provides illustrative quote-data provider implementations
// wired into the aggregator's fallback chain. They are schema-only
// scaffolds demonstrating the Provider contract, not real market-data
// integrations — a real deployment replaces them with clients for actual
// upstream vendors.
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

// AlphaProvider is the first-preference quote provider in the default
// fallback order.
type AlphaProvider struct {
	BaseURL    string
	Credential string
	HTTPClient *http.Client
}

// NewAlphaProvider constructs an AlphaProvider, defaulting httpClient to
// http.DefaultClient when nil.
func NewAlphaProvider(baseURL, credential string, httpClient *http.Client) *AlphaProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AlphaProvider{BaseURL: baseURL, Credential: credential, HTTPClient: httpClient}
}

// ID implements aggregator.Provider.
func (p *AlphaProvider) ID() string { return "alpha" }

// Supports implements aggregator.Provider: alpha serves "quote" for any
// symbol parameter.
func (p *AlphaProvider) Supports(operation string, parameters map[string]string) bool {
	return operation == "quote" && parameters["symbol"] != ""
}

// Fetch implements aggregator.Provider.
func (p *AlphaProvider) Fetch(ctx context.Context, operation string, parameters map[string]string, deadline time.Time) (aggregator.RawResponse, error) {
	callCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	url := fmt.Sprintf("%s/v1/quote?symbol=%s", p.BaseURL, parameters["symbol"])
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: "build request", Cause: err}
	}
	if p.Credential != "" {
		req.Header.Set("Authorization", "Bearer "+p.Credential)
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
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrRateLimited, Message: "alpha rate limited"}
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrPermanentUnavailable, Message: "alpha unavailable"}
	default:
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return aggregator.RawResponse{}, &aggregator.ProviderError{Kind: aggregator.ErrTransient, Message: "read response", Cause: err}
	}
	return aggregator.RawResponse{Body: body}, nil
}

// alphaQuote is alpha's wire shape for a quote response.
type alphaQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	AsOf   string  `json:"as_of"`
}

// Normalize implements aggregator.Provider.
func (p *AlphaProvider) Normalize(raw aggregator.RawResponse) (aggregator.NormalizedResult, error) {
	var q alphaQuote
	if err := json.Unmarshal(raw.Body, &q); err != nil {
		return aggregator.NormalizedResult{}, &aggregator.ProviderError{Kind: aggregator.ErrMalformed, Message: "malformed alpha response", Cause: err}
	}
	return aggregator.NormalizedResult{
		Operation: "quote",
		Data: map[string]any{
			"symbol": q.Symbol,
			"price":  q.Price,
			"asOf":   q.AsOf,
			"source": "alpha",
		},
	}, nil
}
