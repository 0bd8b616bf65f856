package events

import (
	"context"
	"errors"
	"sync"
)

// MemoryBus 使用 channel 在进程内传递事件。
type MemoryBus struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

// NewMemoryBus 创建一个内存事件总线。
func NewMemoryBus(size int) *MemoryBus {
	if size <= 0 {
		size = 64
	}
	return &MemoryBus{ch: make(chan Event, size)}
}

// Publish 投递事件，缓冲区满时阻塞直到上下文取消。
func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("事件总线已关闭")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.ch <- ev:
		return nil
	}
}

// Consume 按投递顺序处理事件，直到上下文取消或总线关闭。
func (b *MemoryBus) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-b.ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, ev)
		}
	}
}

// Close 关闭内存总线。
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		close(b.ch)
		b.closed = true
	}
	return nil
}
