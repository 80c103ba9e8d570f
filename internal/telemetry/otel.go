package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	cluelog "goa.design/clue/log"
)

// ClueLogger adapts goa.design/clue/log to Logger. It expects the context
// to already carry a clue log context (set up once at process startup via
// log.Context); this adapter only forwards keyvals.
type ClueLogger struct{}

// NewClueLogger constructs a Logger backed by goa.design/clue/log.
func NewClueLogger() Logger { return ClueLogger{} }

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	cluelog.Debug(ctx, append([]cluelog.Fielder{cluelog.KV{K: "msg", V: msg}}, kvToClue(keyvals)...)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	cluelog.Info(ctx, append([]cluelog.Fielder{cluelog.KV{K: "msg", V: msg}}, kvToClue(keyvals)...)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]cluelog.Fielder{cluelog.KV{K: "msg", V: msg}, cluelog.KV{K: "severity", V: "warning"}}, kvToClue(keyvals)...)
	cluelog.Warn(ctx, fielders...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	fielders := append([]cluelog.Fielder{cluelog.KV{K: "msg", V: msg}}, kvToClue(keyvals)...)
	cluelog.Error(ctx, nil, fielders...)
}

func kvToClue(keyvals []any) []cluelog.Fielder {
	keyvals = Sanitize(keyvals)
	fields := make([]cluelog.Fielder, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, cluelog.KV{K: key, V: keyvals[i+1]})
	}
	return fields
}

// OTelMetrics adapts an OTel meter to Metrics, lazily creating one
// instrument per metric name the first time it is observed. OTel has no
// synchronous gauge instrument, so RecordGauge records into a "_gauge"
// suffixed histogram, matching the fallback used elsewhere in the stack.
type OTelMetrics struct {
	meter      metric.Meter
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelMetrics constructs a Metrics recorder backed by the given meter.
func NewOTelMetrics(meter metric.Meter) Metrics {
	return &OTelMetrics{
		meter:      meter,
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (m *OTelMetrics) IncCounter(name string, value float64, tags ...string) {
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Float64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(context.Background(), value, metric.WithAttributes(toAttrs(tags)...))
}

func (m *OTelMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	h := m.histogram(name)
	if h == nil {
		return
	}
	h.Record(context.Background(), d.Seconds(), metric.WithAttributes(toAttrs(tags)...))
}

func (m *OTelMetrics) RecordGauge(name string, value float64, tags ...string) {
	h := m.histogram(name + "_gauge")
	if h == nil {
		return
	}
	h.Record(context.Background(), value, metric.WithAttributes(toAttrs(tags)...))
}

func (m *OTelMetrics) histogram(name string) metric.Float64Histogram {
	h, ok := m.histograms[name]
	if ok {
		return h
	}
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return nil
	}
	m.histograms[name] = h
	return h
}

// OTelTracer adapts an OTel tracer to Tracer.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer constructs a Tracer backed by the given OTel tracer.
func NewOTelTracer(tracer trace.Tracer) Tracer {
	return &OTelTracer{tracer: tracer}
}

func (t *OTelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s otelSpan) AddEvent(name string, keyvals ...any) {
	s.span.AddEvent(name, trace.WithAttributes(toAttrs(keyvalsToTags(keyvals))...))
}

func (s otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }

func (s otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }

func keyvalsToTags(keyvals []any) []string {
	keyvals = Sanitize(keyvals)
	tags := make([]string, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		tags = append(tags, key+":"+toString(keyvals[i+1]))
	}
	return tags
}
