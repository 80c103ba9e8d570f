// Package store defines the persistence contract for registered service
// instances and tool descriptors, with an in-memory reference
// implementation and an optional Redis write-through mirror.
package store

import (
	"context"
	"errors"

	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
)

// ErrNotFound is returned when an instance or tool lookup misses.
var ErrNotFound = errors.New("instance not found")

// ErrNameCollision is returned by SaveTool when a qualifiedName is already
// owned by a different service name.
var ErrNameCollision = errors.New("tool name owned by another service")

// Store persists ServiceInstances and ToolDescriptors. Implementations
// must be safe for concurrent use.
type Store interface {
	// SaveInstance upserts inst.
	SaveInstance(ctx context.Context, inst registry.ServiceInstance) error
	// GetInstance returns the instance with id, or ErrNotFound.
	GetInstance(ctx context.Context, id string) (registry.ServiceInstance, error)
	// DeleteInstance removes the instance with id. No error if absent.
	DeleteInstance(ctx context.Context, id string) error
	// ListInstances returns all instances matching filter.
	ListInstances(ctx context.Context, filter registry.Filter) ([]registry.ServiceInstance, error)

	// SaveTool upserts a tool descriptor, owned by tool.OwningServiceName.
	// Returns ErrNameCollision if tool.QualifiedName is already owned by a
	// different service name.
	SaveTool(ctx context.Context, tool registry.ToolDescriptor) error
	// DeleteToolsForService removes every tool owned by serviceName.
	DeleteToolsForService(ctx context.Context, serviceName string) error
	// ListTools returns every registered tool descriptor.
	ListTools(ctx context.Context) ([]registry.ToolDescriptor, error)
}
