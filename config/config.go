// Package config 提供了统一的配置加载与管理能力.
// 配置以 TOML 文件为主，支持 APP_ 前缀的环境变量覆盖、结构体校验以及文件变更热更新。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/sortviz/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version   string          `mapstructure:"version"   toml:"version"`
	Server    ServerConfig    `mapstructure:"server"    toml:"server"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" toml:"ratelimit"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake" toml:"snowflake"`
	Sort      SortConfig      `mapstructure:"sort"      toml:"sort"`
	Cache     CacheConfig     `mapstructure:"cache"     toml:"cache"`
	Events    EventsConfig    `mapstructure:"events"    toml:"events"`
	Sampler   SamplerConfig   `mapstructure:"sampler"   toml:"sampler"`
}

// ServerConfig 定义服务器运行时的基础网络与环境参数.
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr           string        `mapstructure:"addr"             toml:"addr"`
		Port           int           `mapstructure:"port"             toml:"port"             validate:"required,min=1,max=65535"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"     toml:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"    toml:"write_timeout"`
		IdleTimeout    time.Duration `mapstructure:"idle_timeout"     toml:"idle_timeout"`
		MaxBodyBytes   int64         `mapstructure:"max_body_bytes"   toml:"max_body_bytes"`
		TrustedProxies []string      `mapstructure:"trusted_proxies"  toml:"trusted_proxies"`
	} `mapstructure:"http" toml:"http"`
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	Output     string `mapstructure:"output"      toml:"output"      validate:"omitempty,oneof=stdout file both"`      // 日志输出目标。
	File       string `mapstructure:"file"        toml:"file"`                                                         // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                                     // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                                  // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                                      // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                     // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪（OpenTelemetry）配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" validate:"min=0,max=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// RateLimitConfig 定义令牌桶限流参数.
type RateLimitConfig struct {
	Rate    int  `mapstructure:"rate"    toml:"rate"`
	Burst   int  `mapstructure:"burst"   toml:"burst"`
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// SnowflakeConfig 分布式 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

// SortConfig 约束排序动画接口的输入规模。
// 每一步都会重新计算 O(n²) 的逆序对，规模需保持在数百以内。
type SortConfig struct {
	MaxLength     int  `mapstructure:"max_length"     toml:"max_length"     validate:"min=0"`
	DefaultLength int  `mapstructure:"default_length" toml:"default_length" validate:"min=0"`
	FastCount     bool `mapstructure:"fast_count"     toml:"fast_count"`
}

// CacheConfig 定义 Run 缓存（bigcache）参数.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"     toml:"enabled"`
	LifeWindow time.Duration `mapstructure:"life_window" toml:"life_window"`
	MaxSizeMB  int           `mapstructure:"max_size_mb" toml:"max_size_mb"`
}

// EventsConfig 定义 /data 事件日志文件.
type EventsConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// SamplerConfig 定义周期性采样任务.
type SamplerConfig struct {
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
	Spec    string        `mapstructure:"spec"    toml:"spec"`
	Length  int           `mapstructure:"length"  toml:"length"  validate:"min=0"`
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// Default 返回一份可直接运行的默认配置.
func Default() *Config {
	cfg := &Config{Version: "dev"}
	cfg.Server.Name = "sortviz"
	cfg.Server.Environment = "dev"
	cfg.Server.HTTP.Port = 8080
	cfg.Server.HTTP.ReadTimeout = 10 * time.Second
	cfg.Server.HTTP.WriteTimeout = 30 * time.Second
	cfg.Server.HTTP.IdleTimeout = 60 * time.Second
	cfg.Server.HTTP.MaxBodyBytes = 1 << 20
	cfg.Log = LogConfig{Level: "info", Output: logging.OutputStdout}
	cfg.Metrics = MetricsConfig{Path: "/metrics", Enabled: true}
	cfg.Tracing = TracingConfig{ServiceName: "sortviz", SamplerRatio: 1}
	cfg.RateLimit = RateLimitConfig{Rate: 50, Burst: 100}
	cfg.Snowflake = SnowflakeConfig{Type: "snowflake", MachineID: 1}
	cfg.Sort = SortConfig{MaxLength: 500, DefaultLength: 20}
	cfg.Cache = CacheConfig{Enabled: true, LifeWindow: 10 * time.Minute, MaxSizeMB: 64}
	cfg.Events = EventsConfig{Path: "./data/events.log"}
	cfg.Sampler = SamplerConfig{Enabled: true, Spec: "@every 30s", Length: 20, Timeout: 10 * time.Second}
	return cfg
}

var (
	vInstance = viper.New()
	validate  = validator.New()

	hookMu   sync.Mutex
	onReload []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	onReload = append(onReload, hook)
}

// Validate 对配置执行结构体标签校验。
func Validate(conf *Config) error {
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Load 读取配置文件，在 Default 的基础上覆盖，并启动文件监听以支持热更新.
func Load(path string, conf *Config) error {
	if err := read(vInstance, path, conf); err != nil {
		return err
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := *conf
		if err := vInstance.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := Validate(&next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		*conf = next
		logging.SetLevel(conf.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		hookMu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		hookMu.Unlock()
		for _, hook := range hooks {
			hook(conf)
		}
	})

	return nil
}

// LoadFile 一次性读取配置文件，不启动监听，供命令行子命令与测试使用.
func LoadFile(path string, conf *Config) error {
	return read(viper.New(), path, conf)
}

func read(v *viper.Viper, path string, conf *Config) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	return Validate(conf)
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		if slice, ok := val.([]any); ok {
			for _, item := range slice {
				if itemMap, ok := item.(map[string]any); ok {
					mask(itemMap)
				}
			}
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回底层的 Viper 实例.
func GetViper() *viper.Viper {
	return vInstance
}
