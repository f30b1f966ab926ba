package config

import (
	stdErrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	xerrors "A2A-Supervisor/internal/errors"
)

const (
	// EnvPrefix 是环境变量覆盖的前缀，例如 A2A_SUPERVISOR_TIMEOUT。
	EnvPrefix = "A2A"
	// EnvConfigPath 指定配置文件路径的环境变量。
	EnvConfigPath = "A2A_CONFIG"
	// DefaultPath 是未显式指定时尝试加载的配置文件。
	DefaultPath = "configs/supervisor.yaml"
)

// Config 描述了 Supervisor 在启动阶段需要加载的全部配置。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Agents     AgentsConfig     `mapstructure:"agents"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Log        LogConfig        `mapstructure:"log"`

	// Path 记录实际加载的配置文件，未加载文件时为空。
	Path string `mapstructure:"-"`
}

// ServerConfig 控制 API 服务的监听地址。
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// SupervisorConfig 控制任务委派的超时、重试与并发。
type SupervisorConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// AgentsConfig 描述智能体描述文件与工具数据源。
type AgentsConfig struct {
	Cards          []string      `mapstructure:"cards"`
	NewsCatalog    string        `mapstructure:"news_catalog"`
	NewsMaxResults int           `mapstructure:"news_max_results"`
	WatchCatalog   bool          `mapstructure:"watch_catalog"`
	MockLatency    time.Duration `mapstructure:"mock_latency"`
}

// CacheConfig 描述结果缓存，driver 取值 memory、redis 或 none。
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

// RedisConfig 包含 Redis 缓存的连接信息。
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// JobsConfig 控制异步作业的工作协程与队列，driver 取值 memory、redis 或 rabbitmq。
type JobsConfig struct {
	Driver    string             `mapstructure:"driver"`
	Workers   int                `mapstructure:"workers"`
	QueueSize int                `mapstructure:"queue_size"`
	Redis     JobsRedisConfig    `mapstructure:"redis"`
	RabbitMQ  JobsRabbitMQConfig `mapstructure:"rabbitmq"`
}

// JobsRedisConfig 描述 Redis 作业队列。
type JobsRedisConfig struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Key       string        `mapstructure:"key"`
	BlockWait time.Duration `mapstructure:"block_wait"`
}

// JobsRabbitMQConfig 描述 RabbitMQ 作业队列。
type JobsRabbitMQConfig struct {
	URL        string `mapstructure:"url"`
	Queue      string `mapstructure:"queue"`
	Prefetch   int    `mapstructure:"prefetch"`
	Durable    bool   `mapstructure:"durable"`
	AutoDelete bool   `mapstructure:"auto_delete"`
}

// LogConfig 对应 pkg/logger 的配置项。
type LogConfig struct {
	Level   string         `mapstructure:"level"`
	Format  string         `mapstructure:"format"`
	Outputs []string       `mapstructure:"outputs"`
	Audit   AuditLogConfig `mapstructure:"audit"`
}

// AuditLogConfig 控制审计日志文件及其轮转策略。
type AuditLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load 读取配置文件并应用环境变量覆盖。
//
// path 为空时依次尝试 A2A_CONFIG 与 DefaultPath；都不存在时仅使用内置默认值。
// 配置中的相对路径以配置文件所在目录为基准解析。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path = resolvePath(path)
	baseDir := "."
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if stdErrors.Is(err, os.ErrNotExist) {
				return nil, xerrors.Wrap(xerrors.CodeNotFound, err, "配置文件不存在",
					xerrors.WithMetadata("path", path))
			}
			return nil, xerrors.Wrap(xerrors.CodeConfigFailure, err, "读取配置文件失败",
				xerrors.WithMetadata("path", path))
		}
		baseDir = filepath.Dir(path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfigFailure, err, "解析配置失败")
	}
	cfg.Path = path
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// setDefaults 注册全部键的默认值，使 AutomaticEnv 能覆盖任意配置项。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")

	v.SetDefault("supervisor.timeout", "3s")
	v.SetDefault("supervisor.max_attempts", 2)
	v.SetDefault("supervisor.max_concurrency", 0)

	v.SetDefault("agents.cards", []string{})
	v.SetDefault("agents.news_catalog", "")
	v.SetDefault("agents.news_max_results", 5)
	v.SetDefault("agents.watch_catalog", false)
	v.SetDefault("agents.mock_latency", "0s")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.redis.address", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "a2a:result:")

	v.SetDefault("jobs.driver", "memory")
	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.queue_size", 64)
	v.SetDefault("jobs.redis.address", "")
	v.SetDefault("jobs.redis.password", "")
	v.SetDefault("jobs.redis.db", 0)
	v.SetDefault("jobs.redis.key", "a2a:jobs")
	v.SetDefault("jobs.redis.block_wait", "5s")
	v.SetDefault("jobs.rabbitmq.url", "")
	v.SetDefault("jobs.rabbitmq.queue", "a2a.jobs")
	v.SetDefault("jobs.rabbitmq.prefetch", 0)
	v.SetDefault("jobs.rabbitmq.durable", true)
	v.SetDefault("jobs.rabbitmq.auto_delete", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.outputs", []string{"stderr"})
	v.SetDefault("log.audit.enabled", false)
	v.SetDefault("log.audit.path", "")
	v.SetDefault("log.audit.max_size_mb", 100)
	v.SetDefault("log.audit.max_backups", 7)
	v.SetDefault("log.audit.max_age_days", 30)
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值，并把相对路径转换为基于 baseDir 的路径。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Supervisor.Timeout <= 0 {
		c.Supervisor.Timeout = 3 * time.Second
	}
	if c.Supervisor.MaxAttempts <= 0 {
		c.Supervisor.MaxAttempts = 2
	}
	if c.Supervisor.MaxConcurrency < 0 {
		c.Supervisor.MaxConcurrency = 0
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	c.Cache.Driver = strings.ToLower(c.Cache.Driver)
	if c.Jobs.Driver == "" {
		c.Jobs.Driver = "memory"
	}
	c.Jobs.Driver = strings.ToLower(c.Jobs.Driver)
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 1
	}
	if c.Jobs.QueueSize <= 0 {
		c.Jobs.QueueSize = 64
	}

	cards := make([]string, 0, len(c.Agents.Cards))
	for _, card := range c.Agents.Cards {
		if card = strings.TrimSpace(card); card != "" {
			cards = append(cards, resolve(baseDir, card))
		}
	}
	c.Agents.Cards = cards
	if c.Agents.NewsCatalog != "" {
		c.Agents.NewsCatalog = resolve(baseDir, c.Agents.NewsCatalog)
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path == "" {
		c.Log.Audit.Path = filepath.Join(baseDir, "logs", "audit.log")
	} else if c.Log.Audit.Path != "" {
		c.Log.Audit.Path = resolve(baseDir, c.Log.Audit.Path)
	}
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.Redis.Address == "" {
			return xerrors.New(xerrors.CodeConfigFailure, "cache.driver 为 redis 时必须配置 cache.redis.address")
		}
	default:
		return xerrors.New(xerrors.CodeConfigFailure, "不支持的 cache.driver: "+c.Cache.Driver)
	}
	switch c.Jobs.Driver {
	case "memory":
	case "redis":
		if c.Jobs.Redis.Address == "" {
			return xerrors.New(xerrors.CodeConfigFailure, "jobs.driver 为 redis 时必须配置 jobs.redis.address")
		}
	case "rabbitmq":
		if c.Jobs.RabbitMQ.URL == "" {
			return xerrors.New(xerrors.CodeConfigFailure, "jobs.driver 为 rabbitmq 时必须配置 jobs.rabbitmq.url")
		}
		if c.Jobs.RabbitMQ.Prefetch < 0 {
			return xerrors.New(xerrors.CodeConfigFailure, "jobs.rabbitmq.prefetch 不能为负数")
		}
	default:
		return xerrors.New(xerrors.CodeConfigFailure, "不支持的 jobs.driver: "+c.Jobs.Driver)
	}
	return nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
