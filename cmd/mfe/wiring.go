package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"MicroFrontend-Portal/internal/api"
	"MicroFrontend-Portal/internal/bundle"
	"MicroFrontend-Portal/internal/config"
	"MicroFrontend-Portal/internal/descriptor"
	"MicroFrontend-Portal/internal/events"
	"MicroFrontend-Portal/internal/observability/metrics"
	"MicroFrontend-Portal/internal/shell"
	"MicroFrontend-Portal/internal/storage/mysql"
	"MicroFrontend-Portal/internal/storage/redis"
	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
	"MicroFrontend-Portal/sdk/go/portal"
)

// openStore 根据存储与缓存驱动构造描述符存储。
func openStore(ctx context.Context, cfg *config.Config) (descriptor.Store, error) {
	var store descriptor.Store
	switch cfg.Storage.Driver {
	case "memory":
		s, err := descriptor.NewStaticStore(cfg.Storage.SeedFile)
		if err != nil {
			return nil, err
		}
		store = s
	case "mysql":
		s, err := mysql.NewDescriptorStore(ctx, mysql.Config{
			DSN:             cfg.Storage.DSN,
			MaxOpenConns:    cfg.Storage.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Storage.ConnMaxIdleTimeSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Storage.Driver)
	}

	if cfg.Cache.Driver != "redis" {
		return store, nil
	}
	cached, err := redis.NewCachedStore(ctx, redis.CacheConfig{
		Address:  cfg.Cache.Redis.Address,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Key:      cfg.Cache.Redis.Key,
		TTL:      cfg.Cache.TTL(),
	}, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return cached, nil
}

// openBus 根据事件驱动构造加载事件总线。
func openBus(ctx context.Context, cfg *config.Config) (events.Bus, error) {
	switch cfg.Events.Driver {
	case "memory":
		return events.NewMemoryBus(cfg.Events.Buffer), nil
	case "redis":
		return events.NewRedisBus(ctx, events.RedisConfig{
			Address:   cfg.Events.Redis.Address,
			Password:  cfg.Events.Redis.Password,
			DB:        cfg.Events.Redis.DB,
			Key:       cfg.Events.Redis.Key,
			BlockWait: time.Duration(cfg.Events.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return events.NewRabbitMQBus(events.RabbitMQConfig{
			URL:        cfg.Events.RabbitMQ.URL,
			Queue:      cfg.Events.RabbitMQ.Queue,
			Durable:    cfg.Events.RabbitMQ.Durable,
			AutoDelete: cfg.Events.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", cfg.Events.Driver)
	}
}

func newConfigServer(cfg *config.Config, store descriptor.Store) *api.Server {
	return api.NewServer(cfg.ConfigServer.Address, store,
		api.WithOrigin(cfg.ConfigServer.Origin),
		api.WithAllowedOrigins(cfg.ConfigServer.AllowedOrigins),
	)
}

func newBundleServer(cfg *config.Config) (*api.BundleServer, error) {
	store, err := bundle.Open(cfg.BundleServer.Dir)
	if err != nil {
		return nil, err
	}
	logger.Named("bundle").Info("插件包已加载", "entries", store.Entries())
	return api.NewBundleServer(cfg.BundleServer.Address, store, cfg.BundleServer.AllowedOrigins), nil
}

// newShell 组装宿主应用：配置客户端、带缓存的插件包加载器和注册表事件出口。
func newShell(cfg *config.Config, bus events.Publisher) (*shell.Shell, error) {
	httpClient := &http.Client{Timeout: cfg.Shell.RequestTimeout()}
	client, err := portal.NewClient(cfg.Shell.ConfigURL, httpClient)
	if err != nil {
		return nil, err
	}
	loader := plugin.NewHTTPLoader(
		plugin.WithHTTPClient(httpClient),
		plugin.WithBundleCache(cfg.Shell.BundleCacheTTL()),
	)
	registry := plugin.NewRegistry(
		plugin.WithLoader(loader),
		plugin.WithConcurrency(cfg.Shell.Concurrency),
		plugin.WithPolicy(cfg.Shell.Policy),
		plugin.WithEventSink(metrics.PluginEventSink()),
		plugin.WithEventSink(events.Sink(bus)),
	)
	return shell.New(cfg.Shell.Address, client, registry), nil
}

// drainMemoryBus 在进程内消费内存总线，避免缓冲区写满后阻塞插件加载。
func drainMemoryBus(ctx context.Context, bus events.Bus) {
	mem, ok := bus.(*events.MemoryBus)
	if !ok {
		return
	}
	log := logger.Named("load-events")
	go func() {
		_ = mem.Consume(ctx, func(_ context.Context, ev events.Event) error {
			log.Debug("load event", "type", ev.Type, "plugin", ev.Plugin, "session", ev.Session)
			return nil
		})
	}()
}

// readinessTargets 返回宿主启动前需要可达的地址：配置接口与本地插件包服务。
func readinessTargets(cfg *config.Config) []string {
	host, port, err := net.SplitHostPort(cfg.BundleServer.Address)
	if err != nil {
		return []string{cfg.Shell.ConfigURL}
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return []string{cfg.Shell.ConfigURL, "http://" + net.JoinHostPort(host, port)}
}

// waitReachable 轮询 rawURL 所在地址直到可以建立 TCP 连接或超时。
func waitReachable(ctx context.Context, rawURL string, timeout time.Duration) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(waitCtx, "tcp", host)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("等待 %s 可用超时: %w", host, err)
		case <-ticker.C:
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
