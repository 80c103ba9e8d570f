package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store/memory"
)

type fakeProber struct {
	status registry.Status
	err    error
}

func (f fakeProber) Probe(context.Context, string) (registry.Status, error) {
	return f.status, f.err
}

func newRegistry(t *testing.T, prober registry.Prober) (*registry.Registry, store.Store) {
	t.Helper()
	st := memory.New()
	cfg := registry.DefaultMonitorConfig()
	return registry.New(st, prober, cfg), st
}

func TestRegisterThenDiscoverRoundTrip(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	inst, err := reg.Register(ctx, registry.RegisterInput{
		Name:    "market-spoke",
		Address: "127.0.0.1:9001",
		Tools: []registry.ToolDescriptor{
			{QualifiedName: "market.stock_quote"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, registry.StatusPassing, inst.Status)

	found, err := reg.Discover(ctx, registry.Filter{Name: "market-spoke"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, inst.ID, found[0].ID)
}

func TestRegisterRejectsToolNameCollision(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	_, err := reg.Register(ctx, registry.RegisterInput{
		Name:  "market-spoke",
		Tools: []registry.ToolDescriptor{{QualifiedName: "shared.tool"}},
	})
	require.NoError(t, err)

	_, err = reg.Register(ctx, registry.RegisterInput{
		Name:  "risk-spoke",
		Tools: []registry.ToolDescriptor{{QualifiedName: "shared.tool"}},
	})
	assert.Error(t, err)
}

func TestDeregisterRemovesToolsWhenLastInstanceGone(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	inst, err := reg.Register(ctx, registry.RegisterInput{
		Name:  "risk-spoke",
		Tools: []registry.ToolDescriptor{{QualifiedName: "risk.var"}},
	})
	require.NoError(t, err)

	require.NoError(t, reg.Deregister(ctx, inst.ID))

	tools, err := reg.ListTools(ctx, registry.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestDeregisterNotifiesOnInstanceRemoved(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	inst, err := reg.Register(ctx, registry.RegisterInput{Name: "market-spoke"})
	require.NoError(t, err)

	var evicted []string
	reg.SetOnInstanceRemoved(func(instanceID string) {
		evicted = append(evicted, instanceID)
	})

	require.NoError(t, reg.Deregister(ctx, inst.ID))
	assert.Equal(t, []string{inst.ID}, evicted)
}

func TestTTLExpiryDeregistersThroughTheSameCleanupPath(t *testing.T) {
	prober := fakeProber{status: registry.StatusCritical}
	reg := registry.New(memory.New(), prober, registry.MonitorConfig{
		ProbeInterval:       time.Millisecond,
		ProbeTimeout:        50 * time.Millisecond,
		CriticalAfterProbes: 1,
		DeregisterAfter:     time.Millisecond,
		HeartbeatTTL:        time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inst, err := reg.Register(ctx, registry.RegisterInput{
		Name:           "market-spoke",
		HealthEndpoint: "http://unreachable.invalid/health",
		Tools:          []registry.ToolDescriptor{{QualifiedName: "market.stock_quote"}},
	})
	require.NoError(t, err)

	var evicted []string
	reg.SetOnInstanceRemoved(func(instanceID string) {
		evicted = append(evicted, instanceID)
	})

	reg.Start(ctx)
	defer reg.Stop()

	require.Eventually(t, func() bool {
		found, err := reg.Discover(ctx, registry.Filter{Name: "market-spoke"})
		return err == nil && len(found) == 0
	}, time.Second, time.Millisecond, "instance was never removed on TTL expiry")

	tools, err := reg.ListTools(ctx, registry.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tools, "tool descriptors must be garbage-collected when the last instance is TTL-removed")
	assert.Contains(t, evicted, inst.ID, "eviction hook must fire on TTL removal too, not just explicit Deregister")
}

func TestListToolsExcludesToolsWithOnlyCriticalInstances(t *testing.T) {
	reg, st := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	inst, err := reg.Register(ctx, registry.RegisterInput{
		Name:  "portfolio-spoke",
		Tools: []registry.ToolDescriptor{{QualifiedName: "portfolio.optimize"}},
	})
	require.NoError(t, err)

	critical := inst
	critical.Status = registry.StatusCritical
	require.NoError(t, st.SaveInstance(ctx, critical))

	tools, err := reg.ListTools(ctx, registry.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestHeartbeatUpdatesTimestamp(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	inst, err := reg.Register(ctx, registry.RegisterInput{Name: "market-spoke"})
	require.NoError(t, err)

	before := inst.LastHeartbeatAt
	time.Sleep(time.Millisecond)
	require.NoError(t, reg.Heartbeat(ctx, inst.ID))

	found, err := reg.Discover(ctx, registry.Filter{Name: "market-spoke"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].LastHeartbeatAt.After(before))
}

func TestResolveOwnerFindsRegisteredTool(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	ctx := context.Background()

	_, err := reg.Register(ctx, registry.RegisterInput{
		Name:  "market-spoke",
		Tools: []registry.ToolDescriptor{{QualifiedName: "market.stock_quote"}},
	})
	require.NoError(t, err)

	owner, err := reg.ResolveOwner(ctx, "market.stock_quote")
	require.NoError(t, err)
	assert.Equal(t, "market-spoke", owner)
}

func TestResolveOwnerUnknownToolReturnsMethodNotFound(t *testing.T) {
	reg, _ := newRegistry(t, fakeProber{status: registry.StatusPassing})
	_, err := reg.ResolveOwner(context.Background(), "nope")
	assert.Error(t, err)
}

func TestHealthSweepTransitionsPassingToCriticalAfterThreshold(t *testing.T) {
	reg, st := newRegistry(t, fakeProber{status: registry.StatusCritical})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inst, err := reg.Register(ctx, registry.RegisterInput{
		Name:           "market-spoke",
		HealthEndpoint: "http://unreachable.invalid/health",
	})
	require.NoError(t, err)

	monitor := registry.NewMonitor(st, fakeProber{status: registry.StatusCritical}, registry.MonitorConfig{
		ProbeInterval:       time.Millisecond,
		ProbeTimeout:        50 * time.Millisecond,
		CriticalAfterProbes: 3,
		DeregisterAfter:     time.Hour,
		HeartbeatTTL:        time.Hour,
	}, nil)
	monitor.Start(ctx)
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		found, err := reg.Discover(ctx, registry.Filter{Name: "market-spoke"})
		return err == nil && len(found) == 1 && found[0].Status == registry.StatusCritical
	}, time.Second, time.Millisecond, "instance never reached Critical")

	_ = inst
}
