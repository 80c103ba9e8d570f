package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store/memory"
)

func TestSaveAndGetInstance(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	inst := registry.ServiceInstance{ID: "m-1", Name: "market-spoke", Status: registry.StatusPassing}
	require.NoError(t, s.SaveInstance(ctx, inst))

	got, err := s.GetInstance(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "market-spoke", got.Name)
}

func TestGetInstanceMissingReturnsErrNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.GetInstance(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteInstanceIsIdempotent(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.SaveInstance(ctx, registry.ServiceInstance{ID: "m-1"}))
	require.NoError(t, s.DeleteInstance(ctx, "m-1"))
	require.NoError(t, s.DeleteInstance(ctx, "m-1"))
	_, err := s.GetInstance(ctx, "m-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListInstancesFiltersByNameTagAndStatus(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.SaveInstance(ctx, registry.ServiceInstance{
		ID: "m-1", Name: "market-spoke", Tags: []string{"us-east"}, Status: registry.StatusPassing,
	}))
	require.NoError(t, s.SaveInstance(ctx, registry.ServiceInstance{
		ID: "m-2", Name: "market-spoke", Tags: []string{"eu-west"}, Status: registry.StatusCritical,
	}))
	require.NoError(t, s.SaveInstance(ctx, registry.ServiceInstance{
		ID: "r-1", Name: "risk-spoke", Status: registry.StatusPassing,
	}))

	byName, err := s.ListInstances(ctx, registry.Filter{Name: "market-spoke"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byTag, err := s.ListInstances(ctx, registry.Filter{Name: "market-spoke", Tag: "us-east"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "m-1", byTag[0].ID)

	passingOnly, err := s.ListInstances(ctx, registry.Filter{Name: "market-spoke", MinStatus: registry.StatusPassing})
	require.NoError(t, err)
	require.Len(t, passingOnly, 1)
	assert.Equal(t, "m-1", passingOnly[0].ID)
}

func TestSaveToolRejectsNameCollisionAcrossServices(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	tool := registry.ToolDescriptor{QualifiedName: "market.stock_quote", OwningServiceName: "market-spoke"}
	require.NoError(t, s.SaveTool(ctx, tool))

	collide := registry.ToolDescriptor{QualifiedName: "market.stock_quote", OwningServiceName: "risk-spoke"}
	err := s.SaveTool(ctx, collide)
	assert.ErrorIs(t, err, store.ErrNameCollision)
}

func TestSaveToolAllowsReRegistrationBySameService(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	tool := registry.ToolDescriptor{QualifiedName: "market.stock_quote", OwningServiceName: "market-spoke"}
	require.NoError(t, s.SaveTool(ctx, tool))
	require.NoError(t, s.SaveTool(ctx, tool))
}

func TestDeleteToolsForServiceRemovesOnlyThatServicesTools(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.SaveTool(ctx, registry.ToolDescriptor{QualifiedName: "market.stock_quote", OwningServiceName: "market-spoke"}))
	require.NoError(t, s.SaveTool(ctx, registry.ToolDescriptor{QualifiedName: "risk.var", OwningServiceName: "risk-spoke"}))

	require.NoError(t, s.DeleteToolsForService(ctx, "market-spoke"))

	tools, err := s.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "risk.var", tools[0].QualifiedName)
}

func TestContextCancellationIsObserved(t *testing.T) {
	s := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.SaveInstance(ctx, registry.ServiceInstance{ID: "m-1"})
	assert.ErrorIs(t, err, context.Canceled)
}
