// Package redis provides a durable write-through mirror of the registry
// store: every write lands in an in-memory map for fast reads and is
// mirrored to Redis so a restarted hub process can rehydrate its
// registered instances and tools instead of starting empty.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Songjaeheon0923/Fin-Hub/internal/ferrors"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store"
	"github.com/Songjaeheon0923/Fin-Hub/internal/registry/store/memory"
)

const (
	instanceKeyPrefix = "finhub:instance:"
	toolKeyPrefix     = "finhub:tool:"
)

// Store mirrors every write to Redis under finhub:instance:<id> and
// finhub:tool:<qualifiedName> keys, while serving reads from an
// in-process memory.Store kept consistent with the mirror.
type Store struct {
	client *goredis.Client
	mem    *memory.Store
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New constructs a Store backed by client, rehydrating its in-memory
// cache from any instances and tools already present in Redis.
func New(ctx context.Context, client *goredis.Client) (*Store, error) {
	s := &Store{client: client, mem: memory.New()}
	if err := s.rehydrate(ctx); err != nil {
		return nil, ferrors.Wrap(ferrors.KindInternal, "redis registry rehydrate failed", err)
	}
	return s, nil
}

func (s *Store) rehydrate(ctx context.Context) error {
	instanceKeys, err := s.scanKeys(ctx, instanceKeyPrefix+"*")
	if err != nil {
		return err
	}
	for _, key := range instanceKeys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var inst registry.ServiceInstance
		if err := json.Unmarshal(raw, &inst); err != nil {
			continue
		}
		_ = s.mem.SaveInstance(ctx, inst)
	}

	toolKeys, err := s.scanKeys(ctx, toolKeyPrefix+"*")
	if err != nil {
		return err
	}
	for _, key := range toolKeys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var tool registry.ToolDescriptor
		if err := json.Unmarshal(raw, &tool); err != nil {
			continue
		}
		_ = s.mem.SaveTool(ctx, tool)
	}
	return nil
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (s *Store) SaveInstance(ctx context.Context, inst registry.ServiceInstance) error {
	if err := s.mem.SaveInstance(ctx, inst); err != nil {
		return err
	}
	raw, err := json.Marshal(inst)
	if err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "marshal instance failed", err)
	}
	if err := s.client.Set(ctx, instanceKeyPrefix+inst.ID, raw, 0).Err(); err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "redis save instance failed", err)
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id string) (registry.ServiceInstance, error) {
	return s.mem.GetInstance(ctx, id)
}

func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	if err := s.mem.DeleteInstance(ctx, id); err != nil {
		return err
	}
	if err := s.client.Del(ctx, instanceKeyPrefix+id).Err(); err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "redis delete instance failed", err)
	}
	return nil
}

func (s *Store) ListInstances(ctx context.Context, filter registry.Filter) ([]registry.ServiceInstance, error) {
	return s.mem.ListInstances(ctx, filter)
}

func (s *Store) SaveTool(ctx context.Context, tool registry.ToolDescriptor) error {
	if err := s.mem.SaveTool(ctx, tool); err != nil {
		return err
	}
	raw, err := json.Marshal(tool)
	if err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "marshal tool failed", err)
	}
	if err := s.client.Set(ctx, toolKeyPrefix+tool.QualifiedName, raw, 0).Err(); err != nil {
		return ferrors.Wrap(ferrors.KindInternal, "redis save tool failed", err)
	}
	return nil
}

func (s *Store) DeleteToolsForService(ctx context.Context, serviceName string) error {
	tools, err := s.mem.ListTools(ctx)
	if err != nil {
		return err
	}
	if err := s.mem.DeleteToolsForService(ctx, serviceName); err != nil {
		return err
	}
	for _, tool := range tools {
		if tool.OwningServiceName != serviceName {
			continue
		}
		if err := s.client.Del(ctx, toolKeyPrefix+tool.QualifiedName).Err(); err != nil {
			return ferrors.Wrap(ferrors.KindInternal, fmt.Sprintf("redis delete tool %q failed", tool.QualifiedName), err)
		}
	}
	return nil
}

func (s *Store) ListTools(ctx context.Context) ([]registry.ToolDescriptor, error) {
	return s.mem.ListTools(ctx)
}
