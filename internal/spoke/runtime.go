package spoke

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/reqctx"
	"github.com/Songjaeheon0923/Fin-Hub/internal/telemetry"
)

// HubClient is the subset of the registry's HTTP client a spoke needs for
// its own lifecycle.
type HubClient interface {
	Register(ctx context.Context, in RegisterInput) (instanceID string, err error)
	Heartbeat(ctx context.Context, instanceID string) error
	Deregister(ctx context.Context, instanceID string) error
}

// RegisterInput mirrors registry.RegisterInput so that Runtime and HubClient
// use no registry types; TransportHubClient (hubclient.go) translates it to
// the registry's own input type.
type RegisterInput struct {
	Name           string
	Address        string
	Tags           []string
	Metadata       map[string]string
	HealthEndpoint string
	Tools          []ToolRegistration
}

// Config parameterizes spoke lifecycle timing (spec §4.4 defaults).
type Config struct {
	StartupRegistrationDeadline time.Duration
	HeartbeatInterval           time.Duration
	ShutdownGrace                time.Duration
}

// DefaultConfig returns the documented spoke lifecycle defaults.
func DefaultConfig() Config {
	return Config{
		StartupRegistrationDeadline: 60 * time.Second,
		HeartbeatInterval:           10 * time.Second,
		ShutdownGrace:                30 * time.Second,
	}
}

// Runtime hosts a tagged dispatch table of tool handlers and manages this
// process's registration lifecycle with the hub.
type Runtime struct {
	name    string
	address string
	tags    []string
	meta    map[string]string

	hub    HubClient
	cfg    Config
	logger telemetry.Logger

	validator *SchemaValidator

	mu       sync.RWMutex
	handlers map[string]ToolRegistration

	instanceID string

	inFlight sync.WaitGroup

	health   *healthState
	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(r *Runtime) { r.logger = l } }

// WithConfig overrides lifecycle timing defaults.
func WithConfig(cfg Config) Option { return func(r *Runtime) { r.cfg = cfg } }

// New constructs a Runtime for a spoke named name, reachable at address,
// backed by hub for registration.
func New(name, address string, hub HubClient, opts ...Option) *Runtime {
	r := &Runtime{
		name:      name,
		address:   address,
		hub:       hub,
		cfg:       DefaultConfig(),
		logger:    telemetry.NewNoopLogger(),
		validator: NewSchemaValidator(),
		handlers:  make(map[string]ToolRegistration),
		health:    newHealthState(),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterTool adds a handler to the dispatch table. Call before Start.
func (r *Runtime) RegisterTool(reg ToolRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[reg.QualifiedName] = reg
}

// Start registers with the hub (retrying with backoff until
// StartupRegistrationDeadline elapses), then launches the heartbeat
// ticker. Returns an error if registration never succeeds in time.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.RLock()
	tools := make([]ToolRegistration, 0, len(r.handlers))
	for _, h := range r.handlers {
		tools = append(tools, h)
	}
	r.mu.RUnlock()

	deadline := time.Now().Add(r.cfg.StartupRegistrationDeadline)
	attempt := 0
	for {
		regCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		id, err := r.hub.Register(regCtx, RegisterInput{
			Name:           r.name,
			Address:        r.address,
			Tags:           r.tags,
			HealthEndpoint: "http://" + r.address + "/health",
			Tools:          tools,
		})
		cancel()
		if err == nil {
			r.instanceID = id
			r.health.setReady(true)
			r.logger.Info(ctx, "spoke registered", "name", r.name, "instanceId", id)
			break
		}
		if time.Now().After(deadline) {
			return ferrors.Wrap(ferrors.KindTransient, "startup registration deadline exceeded", err)
		}
		attempt++
		delay := backoffDelay(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ferrors.Wrap(ferrors.KindCancelled, "startup cancelled", ctx.Err())
		}
	}

	go r.heartbeatLoop(ctx)
	return nil
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * 500 * time.Millisecond
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

func (r *Runtime) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hbCtx, cancel := context.WithTimeout(ctx, r.cfg.HeartbeatInterval)
			if err := r.hub.Heartbeat(hbCtx, r.instanceID); err != nil {
				r.logger.Warn(ctx, "heartbeat failed", "instanceId", r.instanceID, "error", err.Error())
			}
			cancel()
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown deregisters from the hub and waits up to ShutdownGrace for
// in-flight calls to drain before returning.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.health.setReady(false)
	r.stopOnce.Do(func() { close(r.stopCh) })

	drained := make(chan struct{})
	go func() {
		r.inFlight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(r.cfg.ShutdownGrace):
	}

	deregCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if r.instanceID == "" {
		return nil
	}
	return r.hub.Deregister(deregCtx, r.instanceID)
}

// Dispatch looks up handler by qualifiedName, validates arguments against
// its inputSchema, and invokes it.
func (r *Runtime) Dispatch(ctx context.Context, rc reqctx.RequestContext, qualifiedName string, arguments json.RawMessage) (any, error) {
	r.inFlight.Add(1)
	defer r.inFlight.Done()

	r.mu.RLock()
	reg, ok := r.handlers[qualifiedName]
	r.mu.RUnlock()
	if !ok {
		return nil, ferrors.New(ferrors.KindMethodNotFound, "no handler for "+qualifiedName)
	}

	if err := r.validator.Validate(qualifiedName, reg.InputSchema, arguments); err != nil {
		return nil, err
	}

	result, err := reg.Handler(ctx, rc, arguments)
	if err != nil {
		var fe *ferrors.Error
		if stderrors.As(err, &fe) {
			return nil, fe
		}
		return nil, ferrors.Wrap(ferrors.KindHandlerFailure, "handler failed", err)
	}
	return result, nil
}

// ToolsList returns the descriptors this runtime advertises, for local
// in-process introspection. Router does not expose it over HTTP; the hub
// aggregates registered tools across spokes for the frontend's tools/list.
func (r *Runtime) ToolsList() []ToolRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolRegistration, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	return out
}

// HealthRouter returns the chi.Router serving this spoke's health
// endpoint (spec §6.3).
func (r *Runtime) HealthRouter() chi.Router {
	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		status, detail := r.health.snapshot()
		w.Header().Set("Content-Type", "application/json")
		if status != "Passing" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "detail": detail})
	})
	return router
}

// SetDegraded marks the spoke Warning/Critical with an operator-supplied
// detail, e.g. when a downstream dependency the handlers rely on is down.
func (r *Runtime) SetDegraded(status string, detail string) {
	r.health.setStatus(status, detail)
}
