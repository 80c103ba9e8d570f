// Package reqctx defines the per-inbound-request context threaded through
// the frontend, router, spoke, and aggregator: a correlation id and a
// deadline, carried alongside (not instead of) a context.Context so
// cancellation still composes with context.WithDeadline/WithCancel.
package reqctx

import (
	"context"
	"time"
)

// RequestContext is scoped to a single inbound RPC call.
type RequestContext struct {
	CorrelationID string
	Deadline      time.Time
}

// New returns a RequestContext with the given correlation id and a deadline
// of now+timeout,
// and a context.Context carrying that deadline for cancellation.
func New(ctx context.Context, correlationID string, timeout time.Duration) (context.Context, RequestContext, context.CancelFunc) {
	deadline := time.Now().Add(timeout)
	cctx, cancel := context.WithDeadline(ctx, deadline)
	return cctx, RequestContext{CorrelationID: correlationID, Deadline: deadline}, cancel
}

// WithTimeout narrows ctx to at most timeout, never extending rc's own
// deadline (the remaining deadline is always min(rc.Deadline, now+timeout)).
func (rc RequestContext) WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	candidate := time.Now().Add(timeout)
	if candidate.After(rc.Deadline) {
		candidate = rc.Deadline
	}
	return context.WithDeadline(ctx, candidate)
}
