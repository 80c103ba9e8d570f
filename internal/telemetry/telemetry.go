// Package telemetry defines the logging, metrics, and tracing interfaces
// shared across Fin-Hub's components, so that the registry, router, spoke
// runtime, and aggregator depend on an abstraction rather than a concrete
// backend. Concrete implementations live alongside: Noop (default), Zap
// (structured logging), and Clue/OTel (correlated logs, metrics, traces).
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger is a structured, leveled logger. keyvals are alternating
	// key/value pairs, matching the convention used across the hub.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges. tags are optional
	// "key:value" label strings.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, d time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer starts spans around a unit of work.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	}

	// Span is a single unit of traced work.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, keyvals ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}
)

// sensitiveKeys lists keyval keys whose values are redacted before they
// reach any Logger implementation, regardless of backend. Credentials must
// never appear in logs per the aggregator's configuration contract.
var sensitiveKeys = map[string]struct{}{
	"credential": {},
	"apikey":     {},
	"api_key":    {},
	"token":      {},
	"secret":     {},
	"password":   {},
}

// Sanitize redacts values of sensitive keyvals in place and returns the
// (possibly modified) slice. Call this at the boundary of every Logger
// implementation rather than trusting callers to scrub their own keyvals.
func Sanitize(keyvals []any) []any {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		if _, sensitive := sensitiveKeys[normalizeKey(key)]; sensitive {
			keyvals[i+1] = "[redacted]"
		}
	}
	return keyvals
}

func normalizeKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
