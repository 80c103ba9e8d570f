package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	kv := []any{
		"providerId", "alpha",
		"credential", "sk-live-abc123",
		"API_KEY", "xyz",
		"symbol", "AAPL",
	}
	out := telemetry.Sanitize(kv)
	assert.Equal(t, "alpha", out[1])
	assert.Equal(t, "[redacted]", out[3])
	assert.Equal(t, "[redacted]", out[5])
	assert.Equal(t, "AAPL", out[7])
}

func TestSanitizeOddLengthIgnoresTrailingKey(t *testing.T) {
	kv := []any{"symbol", "AAPL", "dangling"}
	assert.NotPanics(t, func() { telemetry.Sanitize(kv) })
}

func TestNoopImplementationsDoNotPanic(t *testing.T) {
	logger := telemetry.NewNoopLogger()
	metrics := telemetry.NewNoopMetrics()
	tracer := telemetry.NewNoopTracer()

	ctx := context.Background()
	logger.Info(ctx, "hello", "k", "v")
	metrics.IncCounter("calls", 1, "tool:market.stock_quote")
	_, span := tracer.Start(ctx, "dispatch")
	span.AddEvent("retry")
	span.End()
}
