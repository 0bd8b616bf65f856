package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"MicroFrontend-Portal/pkg/logger"
	"MicroFrontend-Portal/pkg/plugin"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "MFE_CONFIG"

// Config 描述了门户各个进程在启动阶段需要加载的配置。
type Config struct {
	ConfigServer ConfigServerConfig `json:"config_server" yaml:"config_server"`
	BundleServer BundleServerConfig `json:"bundle_server" yaml:"bundle_server"`
	Shell        ShellConfig        `json:"shell" yaml:"shell"`
	Storage      StorageConfig      `json:"storage" yaml:"storage"`
	Cache        CacheConfig        `json:"cache" yaml:"cache"`
	Events       EventsConfig       `json:"events" yaml:"events"`
	Logging      logger.Config      `json:"logging" yaml:"logging"`
	Metrics      MetricsConfig      `json:"metrics" yaml:"metrics"`
}

// ConfigServerConfig 控制插件配置服务。
type ConfigServerConfig struct {
	Address string `json:"address" yaml:"address"`
	// Origin 与 entry 拼接得到插件包的绝对地址。
	Origin         string   `json:"origin" yaml:"origin"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// BundleServerConfig 控制插件包服务。Dir 为空时使用内置示例插件。
type BundleServerConfig struct {
	Address        string   `json:"address" yaml:"address"`
	Dir            string   `json:"dir" yaml:"dir"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// ShellConfig 控制宿主应用。
type ShellConfig struct {
	Address               string        `json:"address" yaml:"address"`
	ConfigURL             string        `json:"config_url" yaml:"config_url"`
	Concurrency           int           `json:"concurrency" yaml:"concurrency"`
	BundleCacheTTLSeconds int           `json:"bundle_cache_ttl_seconds" yaml:"bundle_cache_ttl_seconds"`
	RequestTimeoutSeconds int           `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	Policy                plugin.Policy `json:"policy" yaml:"policy"`
}

// StorageConfig 描述插件描述符的存储后端。
type StorageConfig struct {
	Driver                 string `json:"driver" yaml:"driver"`
	DSN                    string `json:"dsn" yaml:"dsn"`
	SeedFile               string `json:"seed_file" yaml:"seed_file"`
	MaxOpenConns           int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds" yaml:"conn_max_idle_time_seconds"`
}

// CacheConfig 描述描述符列表的读穿缓存。
type CacheConfig struct {
	Driver     string      `json:"driver" yaml:"driver"`
	TTLSeconds int         `json:"ttl_seconds" yaml:"ttl_seconds"`
	Redis      RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig 为缓存与事件共用的 Redis 连接参数。
type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Key      string `json:"key" yaml:"key"`
	// BlockWait 为消费端 BRPOP 的阻塞秒数。
	BlockWait int `json:"block_wait_seconds" yaml:"block_wait_seconds"`
}

// RabbitMQConfig 描述加载事件使用的 RabbitMQ 队列。
type RabbitMQConfig struct {
	URL        string `json:"url" yaml:"url"`
	Queue      string `json:"queue" yaml:"queue"`
	Durable    bool   `json:"durable" yaml:"durable"`
	AutoDelete bool   `json:"auto_delete" yaml:"auto_delete"`
}

// EventsConfig 选择插件加载事件的发布方式。
type EventsConfig struct {
	Driver   string         `json:"driver" yaml:"driver"`
	Buffer   int            `json:"buffer" yaml:"buffer"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq"`
}

// MetricsConfig 控制 Prometheus 指标监听地址，为空时不启动。
type MetricsConfig struct {
	Address string `json:"address" yaml:"address"`
}

// Default 返回只包含默认值的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults("")
	return cfg
}

// Resolve 按 flag、环境变量、内置默认值的顺序加载配置。
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Load 解析指定路径的配置文件，.yaml/.yml 按 YAML 处理，其余按 JSON 处理。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	default:
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查驱动名称等枚举字段。
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "mysql":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn 不能为空")
		}
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case "none", "redis":
	default:
		return fmt.Errorf("未知的缓存驱动: %s", c.Cache.Driver)
	}
	switch c.Events.Driver {
	case "memory", "redis", "rabbitmq":
	default:
		return fmt.Errorf("未知的事件驱动: %s", c.Events.Driver)
	}
	if c.Shell.Concurrency < 1 {
		return errors.New("shell.concurrency 必须大于 0")
	}
	return nil
}

// BundleCacheTTL 返回插件包缓存时长，0 表示不缓存。
func (s ShellConfig) BundleCacheTTL() time.Duration {
	return time.Duration(s.BundleCacheTTLSeconds) * time.Second
}

// RequestTimeout 返回拉取配置与插件包的超时时间。
func (s ShellConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// TTL 返回缓存时长。
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.ConfigServer.Address == "" {
		c.ConfigServer.Address = ":3001"
	}
	if c.ConfigServer.Origin == "" {
		c.ConfigServer.Origin = "http://localhost:5000"
	}
	c.ConfigServer.Origin = strings.TrimRight(c.ConfigServer.Origin, "/")
	if len(c.ConfigServer.AllowedOrigins) == 0 {
		c.ConfigServer.AllowedOrigins = []string{"*"}
	}

	if c.BundleServer.Address == "" {
		c.BundleServer.Address = ":5000"
	}
	if len(c.BundleServer.AllowedOrigins) == 0 {
		c.BundleServer.AllowedOrigins = []string{"*"}
	}
	c.BundleServer.Dir = resolvePath(baseDir, c.BundleServer.Dir)

	if c.Shell.Address == "" {
		c.Shell.Address = ":3000"
	}
	if c.Shell.ConfigURL == "" {
		c.Shell.ConfigURL = "http://localhost:3001/config"
	}
	if c.Shell.Concurrency == 0 {
		c.Shell.Concurrency = 1
	}
	if c.Shell.RequestTimeoutSeconds <= 0 {
		c.Shell.RequestTimeoutSeconds = 15
	}
	c.Shell.Policy = c.Shell.Policy.Merge(plugin.DefaultPolicy())

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	c.Storage.SeedFile = resolvePath(baseDir, c.Storage.SeedFile)

	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 30
	}
	if c.Cache.Redis.Key == "" {
		c.Cache.Redis.Key = "mfe:descriptors"
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "memory"
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = 256
	}
	if c.Events.Redis.Key == "" {
		c.Events.Redis.Key = "mfe:load-events"
	}
	if c.Events.Redis.BlockWait <= 0 {
		c.Events.Redis.BlockWait = 5
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "mfe.load-events"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	c.Logging.Audit.Path = resolvePath(baseDir, c.Logging.Audit.Path)
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
