// Package router implements the Tool Execution Router (component B): it
// resolves a tool name to an owning service, balances load across that
// service's healthy instances, enforces per-instance concurrency and
// per-(tool,instance) circuit breaking, and retries retryable failures
// with exponential backoff.
package router

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
	"github.com/Songjaeheon0923/Fin-Hub/internal/router/breaker"
	"github.com/Songjaeheon0923/Fin-Hub/internal/router/retry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

// SpokeCaller invokes a remote spoke instance's tools/call. Implementations
// live outside this package (e.g. an HTTP or in-process transport); the
// router only needs this seam to dispatch and classify the outcome.
type SpokeCaller interface {
	CallTool(ctx context.Context, inst registry.ServiceInstance, toolName string, arguments []byte) ([]byte, error)
}

// Discoverer is the subset of the registry the dispatcher depends on.
type Discoverer interface {
	Discover(ctx context.Context, filter registry.Filter) ([]registry.ServiceInstance, error)
}

// ToolResolver maps a qualified tool name to its owning service name.
type ToolResolver interface {
	ResolveOwner(ctx context.Context, toolName string) (string, error)
}

// Config parameterizes the dispatcher per §4.3/§5 defaults.
type Config struct {
	PerInstanceCapacity int
	PerCallTimeout      time.Duration
	MaxRetries          int
	PermitAcquireWait   time.Duration
	Retry               retry.Config
}

// DefaultConfig returns the documented dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		PerInstanceCapacity: 10,
		PerCallTimeout:      30 * time.Second,
		MaxRetries:          2,
		PermitAcquireWait:   100 * time.Millisecond,
		Retry:               retry.DefaultConfig(),
	}
}

// Dispatcher is the Tool Execution Router.
type Dispatcher struct {
	discovery Discoverer
	resolver  ToolResolver
	caller    SpokeCaller
	breakers  *breaker.Manager
	permits   *PermitTracker
	cfg       Config
	logger    telemetry.Logger
	metrics   telemetry.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(d *Dispatcher) { d.logger = l } }

// WithMetrics overrides the default no-op metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

// New constructs a Dispatcher. failureThreshold/cooldown configure the
// circuit breaker manager.
func New(discovery Discoverer, resolver ToolResolver, caller SpokeCaller, cfg Config, failureThreshold int, cooldown time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		discovery: discovery,
		resolver:  resolver,
		caller:    caller,
		breakers:  breaker.NewManager(failureThreshold, cooldown),
		permits:   NewPermitTracker(cfg.PerInstanceCapacity),
		cfg:       cfg,
		logger:    telemetry.NewNoopLogger(),
		metrics:   telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EvictInstance drops all breaker state for instanceID, called when the
// registry removes it.
func (d *Dispatcher) EvictInstance(instanceID string) {
	d.breakers.EvictInstance(instanceID)
}

// Dispatch resolves toolName, selects a healthy instance, and invokes it,
// retrying on retryable failure per the configured backoff schedule.
func (d *Dispatcher) Dispatch(ctx context.Context, rc reqctx.RequestContext, toolName string, arguments []byte) ([]byte, error) {
	serviceName, err := d.resolver.ResolveOwner(ctx, toolName)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindMethodNotFound, "tool not found", err)
	}

	excluded := make(map[string]bool)
	var lastErr error

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retry.Backoff(d.cfg.Retry, attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ferrors.Wrap(ferrors.KindDeadlineExceeded, "dispatch cancelled during backoff", ctx.Err())
			}
		}

		result, err := d.dispatchOnce(ctx, rc, toolName, serviceName, arguments, excluded)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !ferrors.Retryable(ferrors.KindOf(err)) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ferrors.Wrap(ferrors.KindDeadlineExceeded, "deadline exceeded during dispatch", ctx.Err())
		}
	}
	return nil, lastErr
}

// dispatchOnce performs steps 2-9 of the dispatch algorithm for a single
// attempt: enumerate instances, filter by breaker state, select one,
// acquire its permit, and invoke it.
func (d *Dispatcher) dispatchOnce(ctx context.Context, rc reqctx.RequestContext, toolName, serviceName string, arguments []byte, excluded map[string]bool) ([]byte, error) {
	instances, err := d.discovery.Discover(ctx, registry.Filter{Name: serviceName, MinStatus: registry.StatusPassing})
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInternal, "discover failed", err)
	}
	if len(instances) == 0 {
		return nil, ferrors.New(ferrors.KindNoHealthyInstance, "no passing instance for "+serviceName)
	}

	candidates := make([]Candidate, 0, len(instances))
	byID := make(map[string]registry.ServiceInstance, len(instances))
	anyOpen := false
	for _, inst := range instances {
		byID[inst.ID] = inst
		if excluded[inst.ID] {
			continue
		}
		if d.breakers.State(toolName, inst.ID).String() == "open" {
			anyOpen = true
			continue
		}
		candidates = append(candidates, Candidate{
			InstanceID: inst.ID,
			Capacity:   d.permits.Capacity(),
			InFlight:   d.permits.InFlight(inst.ID),
		})
	}

	if len(candidates) == 0 {
		if anyOpen {
			return nil, ferrors.New(ferrors.KindAllInstancesOpen, "all instances of "+serviceName+" have an open breaker")
		}
		return nil, ferrors.New(ferrors.KindNoHealthyInstance, "no eligible instance for "+serviceName)
	}

	chosen, ok := SelectInstance(candidates)
	if !ok {
		return nil, ferrors.New(ferrors.KindNoHealthyInstance, "no eligible instance for "+serviceName)
	}
	inst := byID[chosen.InstanceID]

	permitCtx, permitCancel := context.WithTimeout(ctx, d.cfg.PermitAcquireWait)
	release, err := d.permits.Acquire(permitCtx, inst.ID)
	permitCancel()
	if err != nil {
		excluded[inst.ID] = true
		return nil, ferrors.Wrap(ferrors.KindDeadlineExceeded, "permit acquisition timed out", err)
	}
	defer release()

	callCtx, callCancel := rc.WithTimeout(ctx, d.cfg.PerCallTimeout)
	defer callCancel()

	result, callErr, outcome := breaker.Execute[[]byte](d.breakers, toolName, inst.ID, isRetryableCallError, func() ([]byte, error) {
		return d.caller.CallTool(callCtx, inst, toolName, arguments)
	})

	if callErr == nil {
		return result, nil
	}
	if outcome == breaker.OutcomeFiltered {
		excluded[inst.ID] = true
		return nil, ferrors.New(ferrors.KindAllInstancesOpen, "breaker open for instance "+inst.ID)
	}
	if isRetryableCallError(callErr) {
		excluded[inst.ID] = true
		return nil, ferrors.Wrap(ferrors.KindTransient, "spoke call failed", callErr)
	}
	return nil, callErr
}

// isRetryableCallError classifies a SpokeCaller error: a *ferrors.Error
// uses its own Kind's Retryable verdict; anything else (a raw transport
// error that never went through ferrors) is treated as retryable, matching
// the conservative default for unclassified network/timeout failures.
func isRetryableCallError(err error) bool {
	if err == nil {
		return false
	}
	var fe *ferrors.Error
	if stderrors.As(err, &fe) {
		return ferrors.Retryable(fe.Kind)
	}
	return true
}
