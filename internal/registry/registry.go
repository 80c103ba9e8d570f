package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

// Registry is the hub's service registry and health monitor: it owns
// ServiceInstance and ToolDescriptor storage and runs the background
// health sweeper. It satisfies the contract regardless of whether Store
// is backed by the in-memory map or an external coordinator.
type Registry struct {
	store             store.Store
	monitor           *Monitor
	logger            telemetry.Logger
	metrics           telemetry.Metrics
	onInstanceRemoved func(instanceID string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics overrides the default no-op metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New constructs a Registry over st, wiring a Monitor using prober and cfg.
func New(st store.Store, prober Prober, cfg MonitorConfig, opts ...Option) *Registry {
	r := &Registry{
		store:   st,
		logger:  telemetry.NewNoopLogger(),
		metrics: telemetry.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.monitor = NewMonitor(st, prober, cfg, r.logger)
	r.monitor.SetRemover(func(ctx context.Context, instanceID string) error {
		_, err := r.removeInstance(ctx, instanceID)
		return err
	})
	return r
}

// SetOnInstanceRemoved registers fn to be called, with the removed
// instance's id, whenever an instance leaves the registry — by an
// explicit Deregister or by TTL expiry after sustained Critical health.
// The router uses this to evict that instance's circuit breaker state
// (spec §3.2: breaker state is owned per instance and evicted when the
// instance is removed).
func (r *Registry) SetOnInstanceRemoved(fn func(instanceID string)) {
	r.onInstanceRemoved = fn
}

// Start begins the background health sweep. ctx governs the sweeper's
// lifetime; cancel it (or call Stop) to terminate the sweep.
func (r *Registry) Start(ctx context.Context) {
	r.monitor.Start(ctx)
}

// Stop halts the background health sweep and waits for it to exit.
func (r *Registry) Stop() {
	r.monitor.Stop()
}

// RegisterInput is the input to Register: a ServiceInstance sans
// timestamps, plus its declared tool list.
type RegisterInput struct {
	Name           string
	Address        string
	Tags           []string
	Metadata       map[string]string
	HealthEndpoint string
	Tools          []ToolDescriptor
}

// Register assigns registeredAt, sets status Passing, stores the
// instance, and attaches its tool descriptors. Registration fails if any
// declared tool name collides with a different service name already
// owning it.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (ServiceInstance, error) {
	inst := ServiceInstance{
		ID:              uuid.New().String(),
		Name:            in.Name,
		Address:         in.Address,
		Tags:            in.Tags,
		Metadata:        in.Metadata,
		HealthEndpoint:  in.HealthEndpoint,
		RegisteredAt:    time.Now(),
		LastHeartbeatAt: time.Now(),
		Status:          StatusPassing,
		Version:         1,
	}

	for _, tool := range in.Tools {
		tool.OwningServiceName = in.Name
		if err := r.store.SaveTool(ctx, tool); err != nil {
			return ServiceInstance{}, ferrors.Wrap(ferrors.KindInvalidRequest, "tool name collision on register", err)
		}
	}

	if err := r.store.SaveInstance(ctx, inst); err != nil {
		return ServiceInstance{}, ferrors.Wrap(ferrors.KindInternal, "save instance failed", err)
	}

	r.logger.Info(ctx, "instance registered", "instanceId", inst.ID, "name", inst.Name)
	r.metrics.IncCounter("registry.register", 1, "name:"+inst.Name)
	return inst, nil
}

// Deregister removes the instance and, if no other instance shares its
// name, its tool descriptors too.
func (r *Registry) Deregister(ctx context.Context, instanceID string) error {
	inst, err := r.removeInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	r.logger.Info(ctx, "instance deregistered", "instanceId", instanceID, "name", inst.Name)
	return nil
}

// removeInstance is the single cleanup path for an instance leaving the
// registry: delete it, garbage-collect its service's tool descriptors if
// it was the last instance of that name, and notify onInstanceRemoved.
// Both Deregister and the health monitor's TTL expiry route through this,
// so neither path can drift from the other's cleanup.
func (r *Registry) removeInstance(ctx context.Context, instanceID string) (ServiceInstance, error) {
	inst, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return ServiceInstance{}, ferrors.Wrap(ferrors.KindToolNotFound, "instance not found", err)
	}
	if err := r.store.DeleteInstance(ctx, instanceID); err != nil {
		return ServiceInstance{}, ferrors.Wrap(ferrors.KindInternal, "delete instance failed", err)
	}

	remaining, err := r.store.ListInstances(ctx, Filter{Name: inst.Name})
	if err == nil && len(remaining) == 0 {
		_ = r.store.DeleteToolsForService(ctx, inst.Name)
	}

	if r.onInstanceRemoved != nil {
		r.onInstanceRemoved(instanceID)
	}
	return inst, nil
}

// Heartbeat updates lastHeartbeatAt and, if the instance was Critical and
// its health endpoint now reports healthy, transitions it back to
// Passing immediately rather than waiting for the next sweep.
func (r *Registry) Heartbeat(ctx context.Context, instanceID string) error {
	inst, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return ferrors.Wrap(ferrors.KindToolNotFound, "instance not found", err)
	}
	inst.LastHeartbeatAt = time.Now()
	inst.Version++
	if inst.Status == StatusCritical && inst.HealthEndpoint != "" {
		probeCtx, cancel := context.WithTimeout(ctx, r.monitor.cfg.ProbeTimeout)
		status, probeErr := r.monitor.prober.Probe(probeCtx, inst.HealthEndpoint)
		cancel()
		if probeErr == nil && status == StatusPassing {
			inst.Status = r.monitor.applyStateMachine(inst.ID, inst.Status, status)
		}
	}
	if err := r.store.SaveInstance(ctx, inst); err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "save instance failed", err)
	}
	return nil
}

// ResolveOwner returns the service name owning toolName, satisfying
// router.ToolResolver.
func (r *Registry) ResolveOwner(ctx context.Context, toolName string) (string, error) {
	tools, err := r.store.ListTools(ctx)
	if err != nil {
		return "", ferrors.Wrap(ferrors.KindInternal, "list tools failed", err)
	}
	for _, tool := range tools {
		if tool.QualifiedName == toolName {
			return tool.OwningServiceName, nil
		}
	}
	return "", ferrors.New(ferrors.KindMethodNotFound, "unknown tool "+toolName)
}

// Discover returns instances matching filter.
func (r *Registry) Discover(ctx context.Context, filter Filter) ([]ServiceInstance, error) {
	instances, err := r.store.ListInstances(ctx, filter)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInternal, "list instances failed", err)
	}
	return instances, nil
}

// ListTools returns tool descriptors whose owning service has at least
// one instance meeting filter.MinStatus. A tool with only Critical
// instances is never returned.
func (r *Registry) ListTools(ctx context.Context, filter Filter) ([]ToolDescriptor, error) {
	allTools, err := r.store.ListTools(ctx)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindInternal, "list tools failed", err)
	}

	minStatus := filter.MinStatus
	if minStatus == StatusUnknown {
		// Unspecified defaults to "not Critical": a tool backed only by
		// Critical instances is never advertised, per the registry's
		// visibility invariant.
		minStatus = StatusWarning
	}

	healthyNames := make(map[string]bool)
	out := make([]ToolDescriptor, 0, len(allTools))
	for _, tool := range allTools {
		healthy, checked := healthyNames[tool.OwningServiceName]
		if !checked {
			instances, err := r.store.ListInstances(ctx, Filter{Name: tool.OwningServiceName, MinStatus: minStatus})
			if err != nil {
				return nil, ferrors.Wrap(ferrors.KindInternal, "list instances failed", err)
			}
			healthy = len(instances) > 0
			healthyNames[tool.OwningServiceName] = healthy
		}
		if healthy {
			out = append(out, tool)
		}
	}
	return out, nil
}
