package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "MicroFrontend-Portal/internal/errors"
)

// RedisConfig 描述 Redis 事件队列的连接参数。
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	Key       string
	BlockWait time.Duration
}

// RedisBus 使用 Redis list 保存事件：LPUSH 发布，BRPOP 消费。
type RedisBus struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

// NewRedisBus 连接 Redis 并创建事件总线。
func NewRedisBus(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, xerrors.Wrap(xerrors.CodeEventFailure, err, "连接 Redis 失败")
	}
	return NewRedisBusWithClient(client, cfg.Key, cfg.BlockWait), nil
}

// NewRedisBusWithClient 使用已有客户端创建事件总线。
func NewRedisBusWithClient(client *redis.Client, key string, wait time.Duration) *RedisBus {
	if key == "" {
		key = "mfe:load-events"
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisBus{client: client, key: key, wait: wait}
}

// Publish 将事件写入 Redis。
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := b.client.LPush(ctx, b.key, payload).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeEventFailure, err, "Redis 发布事件失败")
	}
	return nil
}

// Consume 通过 BRPOP 按发布顺序读取事件。
func (b *RedisBus) Consume(ctx context.Context, handler Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		values, err := b.client.BRPop(ctx, b.wait, b.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return xerrors.Wrap(xerrors.CodeEventFailure, err, "Redis 读取事件失败")
		}
		if len(values) != 2 {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(values[1]), &ev); err != nil {
			continue
		}
		_ = handler(ctx, ev)
	}
}

// Close 关闭 Redis 连接。
func (b *RedisBus) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
