// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	StoryStore    StoryStoreConfig    `yaml:"story_store" mapstructure:"story_store"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generators    GeneratorsConfig    `yaml:"generators" mapstructure:"generators"`
	Scene         SceneConfig         `yaml:"scene" mapstructure:"scene"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// StoryStoreConfig 故事状态存储配置
type StoryStoreConfig struct {
	// Backend 存储后端：memory 或 redis
	Backend string `yaml:"backend" mapstructure:"backend"`
	// TTL 仅 redis 后端有效，故事记录过期时间
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// KeyPrefix 仅 redis 后端有效
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GeneratorsConfig 外部生成服务配置
type GeneratorsConfig struct {
	Image     ImageAPIConfig     `yaml:"image" mapstructure:"image"`
	Video     VideoAPIConfig     `yaml:"video" mapstructure:"video"`
	Narration NarrationAPIConfig `yaml:"narration" mapstructure:"narration"`
}

// ImageAPIConfig 图像生成服务配置
type ImageAPIConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Size    string        `yaml:"size" mapstructure:"size"`
	Quality string        `yaml:"quality" mapstructure:"quality"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// VideoAPIConfig 视频生成服务配置
type VideoAPIConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	AccountEmail string        `yaml:"account_email" mapstructure:"account_email"`
	AccountPass  string        `yaml:"account_pass" mapstructure:"account_pass"`
	Seconds      int           `yaml:"seconds" mapstructure:"seconds"`
	AspectRatio  string        `yaml:"aspect_ratio" mapstructure:"aspect_ratio"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// NarrationAPIConfig 语音合成服务配置
type NarrationAPIConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	VoiceID      string        `yaml:"voice_id" mapstructure:"voice_id"`
	ModelID      string        `yaml:"model_id" mapstructure:"model_id"`
	OutputFormat string        `yaml:"output_format" mapstructure:"output_format"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SceneConfig 场景生成周期配置
type SceneConfig struct {
	// CycleTimeout 单个生成周期的总超时
	CycleTimeout time.Duration `yaml:"cycle_timeout" mapstructure:"cycle_timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
