// Package memory provides an in-memory implementation of the registry
// store, suitable for single-node (single-leader) deployments where
// durability across restarts is not required.
package memory

import (
	"context"
	"sync"

	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store"
)

// Store is an in-memory implementation of store.Store, safe for
// concurrent use: reads are concurrent, writes are serialized.
type Store struct {
	mu        sync.RWMutex
	instances map[string]registry.ServiceInstance
	tools     map[string]registry.ToolDescriptor
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		instances: make(map[string]registry.ServiceInstance),
		tools:     make(map[string]registry.ToolDescriptor),
	}
}

func (s *Store) SaveInstance(ctx context.Context, inst registry.ServiceInstance) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = inst
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (registry.ServiceInstance, error) {
	if err := ctxErr(ctx); err != nil {
		return registry.ServiceInstance{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return registry.ServiceInstance{}, store.ErrNotFound
	}
	return inst, nil
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, id)
	return nil
}

func (s *Store) ListInstances(ctx context.Context, filter registry.Filter) ([]registry.ServiceInstance, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]registry.ServiceInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		if registry.Matches(inst, filter) {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *Store) SaveTool(ctx context.Context, tool registry.ToolDescriptor) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tools[tool.QualifiedName]; ok && existing.OwningServiceName != tool.OwningServiceName {
		return store.ErrNameCollision
	}
	s.tools[tool.QualifiedName] = tool
	return nil
}

func (s *Store) DeleteToolsForService(ctx context.Context, serviceName string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, tool := range s.tools {
		if tool.OwningServiceName == serviceName {
			delete(s.tools, name)
		}
	}
	return nil
}

func (s *Store) ListTools(ctx context.Context) ([]registry.ToolDescriptor, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]registry.ToolDescriptor, 0, len(s.tools))
	for _, tool := range s.tools {
		out = append(out, tool)
	}
	return out, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
