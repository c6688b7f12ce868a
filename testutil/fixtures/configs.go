// =============================================================================
// 📦 测试数据工厂 - 配置测试数据
// =============================================================================
// 提供预定义的 CacheFlow 配置变体，用于测试
// =============================================================================
package fixtures

import (
	"time"

	"github.com/BaSui01/cacheflow/config"
)

// =============================================================================
// ⚙️ 应用配置工厂
// =============================================================================

// TestConfig 返回适合单测的完整配置：全内存、随机端口、静默日志
func TestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Provider.URI = "cacheflow://test"
	cfg.Provider.Scope = "testing"
	cfg.Server.HTTPPort = 0
	cfg.Log.Level = "error"
	cfg.Log.Format = "console"
	cfg.Telemetry.Enabled = false
	return cfg
}

// TemplatedConfig 返回带预定义缓存模板的配置
func TemplatedConfig() *config.Config {
	cfg := TestConfig()
	cfg.Caches = []config.CacheTemplate{
		{
			Name:      "sessions",
			TTL:       30 * time.Minute,
			Capacity:  1000,
			KeyType:   "string",
			ValueType: "string",
		},
		{
			Name:      "counters",
			KeyType:   "string",
			ValueType: "int64",
		},
		{
			Name:     "blobs",
			Store:    "memory",
			Capacity: 64,
		},
	}
	return cfg
}

// BoundedConfig 返回带默认容量上限的配置
func BoundedConfig(capacity int) *config.Config {
	cfg := TestConfig()
	cfg.Defaults.Capacity = capacity
	return cfg
}

// SQLiteConfig 返回启用 SQLite 存储的配置，path 为数据库文件路径
func SQLiteConfig(path string) *config.Config {
	cfg := TestConfig()
	cfg.Stores.SQL.Enabled = true
	cfg.Stores.SQL.Driver = "sqlite"
	cfg.Stores.SQL.Name = path
	cfg.Stores.SQL.AutoMigrate = true
	return cfg
}

// RedisConfig 返回启用 Redis 存储的配置，addr 为服务地址
func RedisConfig(addr string) *config.Config {
	cfg := TestConfig()
	cfg.Stores.Redis.Enabled = true
	cfg.Stores.Redis.Addr = addr
	cfg.Stores.Redis.KeyPrefix = "cacheflow-test"
	return cfg
}

// AuthenticatedConfig 返回启用管理 API 鉴权的配置
func AuthenticatedConfig(apiKey string) *config.Config {
	cfg := TestConfig()
	cfg.Server.APIKey = apiKey
	return cfg
}

// ScopedConfig 返回指定作用域的配置
func ScopedConfig(uri, scope string) *config.Config {
	cfg := TestConfig()
	cfg.Provider.URI = uri
	cfg.Provider.Scope = scope
	return cfg
}

// =============================================================================
// 📄 YAML 配置文档
// =============================================================================

// ConfigYAML 是可直接写入文件的完整配置文档，与 TemplatedConfig 语义一致
const ConfigYAML = `provider:
  uri: "cacheflow://test"
  scope: "testing"

defaults:
  store: memory
  ttl: 5m
  capacity: 1024

caches:
  - name: sessions
    ttl: 30m
    capacity: 1000
    key_type: string
    value_type: string
  - name: counters
    key_type: string
    value_type: int64
  - name: blobs
    store: memory
    capacity: 64

stores:
  memory:
    janitor_interval: 1m
  redis:
    enabled: false
    addr: "localhost:6379"
    key_prefix: cacheflow-test
  sql:
    enabled: false
    driver: sqlite
    name: "cacheflow.db"
    auto_migrate: true

server:
  http_port: 0
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 5s

log:
  level: error
  format: console

telemetry:
  enabled: false
  service_name: cacheflow-test

metrics:
  namespace: cacheflow_test
`

// MinimalYAML 是只覆盖少数字段的配置文档，其余字段由默认值补齐
const MinimalYAML = `defaults:
  store: memory
log:
  level: warn
`

// InvalidYAML 是带语法错误的配置文档
const InvalidYAML = "defaults:\n  store: [unclosed\n"
