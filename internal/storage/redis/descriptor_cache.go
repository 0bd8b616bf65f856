package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"MicroFrontend-Portal/internal/descriptor"
	xerrors "MicroFrontend-Portal/internal/errors"
	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
)

// CacheConfig 描述 Redis 缓存的连接参数。
type CacheConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// CachedStore 在 next 前面做读穿缓存。Redis 不可用时直接回源，不影响配置服务。
type CachedStore struct {
	client *redis.Client
	next   descriptor.Store
	key    string
	ttl    time.Duration
	log    *slog.Logger
}

var (
	_ descriptor.Store  = (*CachedStore)(nil)
	_ descriptor.Writer = (*CachedStore)(nil)
)

// NewCachedStore 连接 Redis 并包装 next。
func NewCachedStore(ctx context.Context, cfg CacheConfig, next descriptor.Store) (*CachedStore, error) {
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
		return nil, xerrors.Wrap(xerrors.CodeCacheFailure, err, "连接 Redis 失败")
	}
	return NewCachedStoreWithClient(client, cfg, next), nil
}

// NewCachedStoreWithClient 使用已有客户端构建缓存，关闭时一并关闭客户端。
func NewCachedStoreWithClient(client *redis.Client, cfg CacheConfig, next descriptor.Store) *CachedStore {
	key := cfg.Key
	if key == "" {
		key = "mfe:descriptors"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{
		client: client,
		next:   next,
		key:    key,
		ttl:    ttl,
		log:    logger.Named("descriptor-cache"),
	}
}

// List 优先读取缓存，未命中时回源并写回。
func (c *CachedStore) List(ctx context.Context) ([]plugin.Descriptor, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var items []plugin.Descriptor
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
		c.log.Warn("丢弃无法解析的缓存", "key", c.key)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("读取缓存失败，回源", "key", c.key, "error", err)
	}

	items, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, items); err != nil {
		c.log.Warn("写入缓存失败", "key", c.key, "error", err)
	}
	return items, nil
}

func (c *CachedStore) store(ctx context.Context, items []plugin.Descriptor) error {
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("序列化描述符失败: %w", err)
	}
	if err := c.client.Set(ctx, c.key, encoded, c.ttl).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "写入 Redis 失败", xerrors.WithMetadata("key", c.key))
	}
	return nil
}

// Save 写入底层存储后清除缓存。底层存储不支持写入时返回错误。
func (c *CachedStore) Save(ctx context.Context, descriptors []plugin.Descriptor) error {
	w, ok := c.next.(descriptor.Writer)
	if !ok {
		return xerrors.New(xerrors.CodeInvalidArgument, "underlying descriptor store is read-only")
	}
	if err := w.Save(ctx, descriptors); err != nil {
		return err
	}
	return c.Invalidate(ctx)
}

// Invalidate 删除缓存键。
func (c *CachedStore) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeCacheFailure, err, "删除缓存失败", xerrors.WithMetadata("key", c.key))
	}
	return nil
}

// Close 关闭底层存储与 Redis 客户端。
func (c *CachedStore) Close() error {
	return errors.Join(c.next.Close(), c.client.Close())
}
