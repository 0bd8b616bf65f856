package descriptor

import (
	"context"
	"sync"

	"MicroFrontend-Portal/pkg/plugin"
)

// MemoryStore 在进程内保存一份静态描述符列表。
type MemoryStore struct {
	mu    sync.RWMutex
	items []plugin.Descriptor
}

// NewMemoryStore 校验并复制 items。
func NewMemoryStore(items []plugin.Descriptor) (*MemoryStore, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	return &MemoryStore{items: cloneAll(items)}, nil
}

// List 每次返回新的副本，调用方修改结果不会影响存储。
func (s *MemoryStore) List(_ context.Context) ([]plugin.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items), nil
}

// Save 整体替换描述符列表。
func (s *MemoryStore) Save(_ context.Context, descriptors []plugin.Descriptor) error {
	if err := Validate(descriptors); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = cloneAll(descriptors)
	return nil
}

// Close 实现 Store。
func (s *MemoryStore) Close() error { return nil }
