package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"MicroFrontend-Portal/pkg/plugin"
)

// Event 是插件加载生命周期事件的传输格式。
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Session    string    `json:"session"`
	Plugin     string    `json:"plugin,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromPlugin 将注册表事件转换为传输格式并分配新的 ID。
func FromPlugin(ev plugin.Event) Event {
	out := Event{
		ID:         uuid.NewString(),
		Type:       string(ev.Type),
		Session:    ev.Session,
		Plugin:     ev.Plugin,
		DurationMS: ev.Duration.Milliseconds(),
		OccurredAt: ev.OccurredAt.UTC(),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}
	return out
}

// Handler 处理消费到的事件。
type Handler func(ctx context.Context, ev Event) error

// Publisher 负责发布事件。
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Consumer 负责按顺序消费事件，直到上下文取消。
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Bus 同时具备发布与消费能力。
type Bus interface {
	Publisher
	Consumer
}
