// =============================================================================
// 📦 CacheFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("CACHEFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 CacheFlow 的完整配置结构
type Config struct {
	// Provider 缓存提供者默认身份
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`

	// Defaults 未命中模板时缓存的默认参数
	Defaults DefaultsConfig `yaml:"defaults" env:"DEFAULTS"`

	// Caches 按名称预定义的缓存模板（仅 YAML）
	Caches []CacheTemplate `yaml:"caches" env:"-"`

	// Stores 各存储后端的连接配置
	Stores StoresConfig `yaml:"stores" env:"STORES"`

	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ProviderConfig 提供者默认身份配置
type ProviderConfig struct {
	// 默认管理器 URI
	URI string `yaml:"uri" env:"URI"`
	// 默认作用域
	Scope string `yaml:"scope" env:"SCOPE"`
	// 默认属性（仅 YAML）
	Properties map[string]string `yaml:"properties" env:"-"`
}

// DefaultsConfig 缓存默认参数
type DefaultsConfig struct {
	// 默认存储后端: memory, redis, sql
	Store string `yaml:"store" env:"STORE"`
	// 默认过期时间，0 表示不过期
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 默认容量上限，0 表示不限制
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

// CacheTemplate 按名称预定义的缓存参数模板
type CacheTemplate struct {
	// 缓存名称
	Name string `yaml:"name" json:"name"`
	// 存储后端，空则用默认
	Store string `yaml:"store" json:"store"`
	// 过期时间
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// 容量上限
	Capacity int `yaml:"capacity" json:"capacity"`
	// 键类型提示: string, int, int64, bool, bytes, any
	KeyType string `yaml:"key_type" json:"key_type"`
	// 值类型提示
	ValueType string `yaml:"value_type" json:"value_type"`
}

// StoresConfig 存储后端配置
type StoresConfig struct {
	// Memory 内存存储配置
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`
	// Redis 存储配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// SQL 存储配置
	SQL SQLConfig `yaml:"sql" env:"SQL"`
}

// MemoryConfig 内存存储配置
type MemoryConfig struct {
	// 过期清扫周期，0 表示仅惰性过期
	JanitorInterval time.Duration `yaml:"janitor_interval" env:"JANITOR_INTERVAL"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 是否启用 TLS 连接
	TLS bool `yaml:"tls" env:"TLS"`
	// 键命名空间前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// SQLConfig SQL 存储配置
type SQLConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 驱动类型: sqlite, mysql, postgres
	Driver string `yaml:"driver" env:"DRIVER"`
	// 直接指定连接串，非空时优先于逐项字段
	DSN string `yaml:"dsn" env:"DSN"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 是否自动建表
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 过期清扫周期，0 表示仅惰性过期
	JanitorInterval time.Duration `yaml:"janitor_interval" env:"JANITOR_INTERVAL"`
	// 单批清扫行数
	JanitorBatch int `yaml:"janitor_batch" env:"JANITOR_BATCH"`
	// 清扫批次限速（批/秒）
	JanitorRate float64 `yaml:"janitor_rate" env:"JANITOR_RATE"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 管理 API 密钥，空则不鉴权
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Prometheus 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CACHEFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// validStores 合法的存储后端名
var validStores = map[string]bool{
	"memory": true,
	"redis":  true,
	"sql":    true,
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	// 验证默认存储
	if !validStores[c.Defaults.Store] {
		errs = append(errs, fmt.Sprintf("unknown default store: %s", c.Defaults.Store))
	}
	if c.Defaults.TTL < 0 {
		errs = append(errs, "default ttl must not be negative")
	}
	if c.Defaults.Capacity < 0 {
		errs = append(errs, "default capacity must not be negative")
	}

	// 验证缓存模板
	seen := make(map[string]bool, len(c.Caches))
	for _, tpl := range c.Caches {
		if tpl.Name == "" {
			errs = append(errs, "cache template with empty name")
			continue
		}
		if seen[tpl.Name] {
			errs = append(errs, fmt.Sprintf("duplicate cache template: %s", tpl.Name))
		}
		seen[tpl.Name] = true
		if tpl.Store != "" && !validStores[tpl.Store] {
			errs = append(errs, fmt.Sprintf("cache %s: unknown store: %s", tpl.Name, tpl.Store))
		}
		if tpl.TTL < 0 {
			errs = append(errs, fmt.Sprintf("cache %s: ttl must not be negative", tpl.Name))
		}
	}

	// 验证 SQL 驱动
	switch c.Stores.SQL.Driver {
	case "", "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("unknown sql driver: %s", c.Stores.SQL.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TemplateFor 返回名称对应的缓存模板，未定义时返回 false
func (c *Config) TemplateFor(name string) (CacheTemplate, bool) {
	for _, tpl := range c.Caches {
		if tpl.Name == name {
			return tpl, true
		}
	}
	return CacheTemplate{}, false
}

// ResolveDSN 返回数据库连接字符串，显式 DSN 优先
func (s *SQLConfig) ResolveDSN() string {
	if s.DSN != "" {
		return s.DSN
	}
	switch s.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.Host, s.Port, s.User, s.Password, s.Name, s.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			s.User, s.Password, s.Host, s.Port, s.Name,
		)
	case "sqlite":
		return s.Name
	default:
		return ""
	}
}
