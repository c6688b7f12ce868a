// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证提供者默认值
	assert.Equal(t, "cacheflow://default", cfg.Provider.URI)
	assert.Equal(t, "default", cfg.Provider.Scope)

	// 验证缓存默认参数
	assert.Equal(t, "memory", cfg.Defaults.Store)
	assert.Equal(t, time.Duration(0), cfg.Defaults.TTL)
	assert.Equal(t, 0, cfg.Defaults.Capacity)

	// 验证服务器默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)

	// 验证 Redis 默认值
	assert.False(t, cfg.Stores.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Stores.Redis.Addr)
	assert.Equal(t, 0, cfg.Stores.Redis.DB)
	assert.Equal(t, "cacheflow", cfg.Stores.Redis.KeyPrefix)

	// 验证 SQL 默认值
	assert.Equal(t, "sqlite", cfg.Stores.SQL.Driver)
	assert.True(t, cfg.Stores.SQL.AutoMigrate)
	assert.Equal(t, 500, cfg.Stores.SQL.JanitorBatch)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// 验证 Metrics 默认值
	assert.Equal(t, "cacheflow", cfg.Metrics.Namespace)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "memory", cfg.Defaults.Store)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
provider:
  uri: "cacheflow://prod"
  scope: "payments"
  properties:
    region: "eu-west-1"

defaults:
  store: "redis"
  ttl: 5m
  capacity: 10000

caches:
  - name: "orders"
    store: "sql"
    ttl: 1h
    key_type: "string"
    value_type: "bytes"
  - name: "sessions"
    ttl: 30m
    capacity: 5000

stores:
  redis:
    enabled: true
    addr: "redis.example.com:6379"
    password: "secret"
    db: 1
  sql:
    enabled: true
    driver: "postgres"
    host: "db.example.com"
    port: 5433

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, "cacheflow://prod", cfg.Provider.URI)
	assert.Equal(t, "payments", cfg.Provider.Scope)
	assert.Equal(t, "eu-west-1", cfg.Provider.Properties["region"])

	assert.Equal(t, "redis", cfg.Defaults.Store)
	assert.Equal(t, 5*time.Minute, cfg.Defaults.TTL)
	assert.Equal(t, 10000, cfg.Defaults.Capacity)

	require.Len(t, cfg.Caches, 2)
	assert.Equal(t, "orders", cfg.Caches[0].Name)
	assert.Equal(t, "sql", cfg.Caches[0].Store)
	assert.Equal(t, time.Hour, cfg.Caches[0].TTL)
	assert.Equal(t, "string", cfg.Caches[0].KeyType)
	assert.Equal(t, "sessions", cfg.Caches[1].Name)
	assert.Equal(t, 30*time.Minute, cfg.Caches[1].TTL)

	assert.True(t, cfg.Stores.Redis.Enabled)
	assert.Equal(t, "redis.example.com:6379", cfg.Stores.Redis.Addr)
	assert.Equal(t, "secret", cfg.Stores.Redis.Password)
	assert.Equal(t, 1, cfg.Stores.Redis.DB)

	assert.Equal(t, "postgres", cfg.Stores.SQL.Driver)
	assert.Equal(t, "db.example.com", cfg.Stores.SQL.Host)
	assert.Equal(t, 5433, cfg.Stores.SQL.Port)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	// 设置环境变量
	envVars := map[string]string{
		"CACHEFLOW_SERVER_HTTP_PORT":        "7777",
		"CACHEFLOW_PROVIDER_URI":            "cacheflow://env",
		"CACHEFLOW_PROVIDER_SCOPE":          "env-scope",
		"CACHEFLOW_DEFAULTS_STORE":          "redis",
		"CACHEFLOW_DEFAULTS_TTL":            "90s",
		"CACHEFLOW_STORES_REDIS_ADDR":       "env-redis:6379",
		"CACHEFLOW_STORES_SQL_DRIVER":       "mysql",
		"CACHEFLOW_LOG_LEVEL":               "warn",
		"CACHEFLOW_METRICS_NAMESPACE":       "cf_test",
		"CACHEFLOW_TELEMETRY_ENABLED":       "true",
		"CACHEFLOW_STORES_SQL_JANITOR_RATE": "2.5",
	}

	// 设置环境变量
	for k, v := range envVars {
		os.Setenv(k, v)
	}
	// 清理环境变量
	defer func() {
		for k := range envVars {
			os.Unsetenv(k)
		}
	}()

	// 加载配置
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	// 验证环境变量覆盖了默认值
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, "cacheflow://env", cfg.Provider.URI)
	assert.Equal(t, "env-scope", cfg.Provider.Scope)
	assert.Equal(t, "redis", cfg.Defaults.Store)
	assert.Equal(t, 90*time.Second, cfg.Defaults.TTL)
	assert.Equal(t, "env-redis:6379", cfg.Stores.Redis.Addr)
	assert.Equal(t, "mysql", cfg.Stores.SQL.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "cf_test", cfg.Metrics.Namespace)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 2.5, cfg.Stores.SQL.JanitorRate)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
defaults:
  store: "sql"
  capacity: 100
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 设置环境变量（应该覆盖 YAML）
	os.Setenv("CACHEFLOW_SERVER_HTTP_PORT", "9999")
	os.Setenv("CACHEFLOW_DEFAULTS_STORE", "memory")
	defer func() {
		os.Unsetenv("CACHEFLOW_SERVER_HTTP_PORT")
		os.Unsetenv("CACHEFLOW_DEFAULTS_STORE")
	}()

	// 加载配置
	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "memory", cfg.Defaults.Store)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, 100, cfg.Defaults.Capacity)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	// 设置自定义前缀的环境变量
	os.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")
	os.Setenv("MYAPP_PROVIDER_SCOPE", "custom")
	defer func() {
		os.Unsetenv("MYAPP_SERVER_HTTP_PORT")
		os.Unsetenv("MYAPP_PROVIDER_SCOPE")
	}()

	// 使用自定义前缀加载
	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.HTTPPort)
	assert.Equal(t, "custom", cfg.Provider.Scope)
}

func TestLoader_WithValidator(t *testing.T) {
	// 添加验证器
	validator := func(cfg *Config) error {
		if cfg.Server.HTTPPort < 1024 {
			return assert.AnError
		}
		return nil
	}

	// 设置无效端口
	os.Setenv("CACHEFLOW_SERVER_HTTP_PORT", "80")
	defer os.Unsetenv("CACHEFLOW_SERVER_HTTP_PORT")

	// 加载应该失败
	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// 应该返回默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	// 创建无效的 YAML 文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  http_port: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	// 加载应该失败
	_, err = NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid HTTP port (negative)",
			modify: func(c *Config) {
				c.Server.HTTPPort = -1
			},
			wantErr: true,
		},
		{
			name: "invalid HTTP port (too large)",
			modify: func(c *Config) {
				c.Server.HTTPPort = 70000
			},
			wantErr: true,
		},
		{
			name: "unknown default store",
			modify: func(c *Config) {
				c.Defaults.Store = "dynamo"
			},
			wantErr: true,
		},
		{
			name: "negative default ttl",
			modify: func(c *Config) {
				c.Defaults.TTL = -time.Second
			},
			wantErr: true,
		},
		{
			name: "template with empty name",
			modify: func(c *Config) {
				c.Caches = []CacheTemplate{{Name: ""}}
			},
			wantErr: true,
		},
		{
			name: "duplicate templates",
			modify: func(c *Config) {
				c.Caches = []CacheTemplate{{Name: "orders"}, {Name: "orders"}}
			},
			wantErr: true,
		},
		{
			name: "template with unknown store",
			modify: func(c *Config) {
				c.Caches = []CacheTemplate{{Name: "orders", Store: "gcs"}}
			},
			wantErr: true,
		},
		{
			name: "unknown sql driver",
			modify: func(c *Config) {
				c.Stores.SQL.Driver = "oracle"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_TemplateFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Caches = []CacheTemplate{
		{Name: "orders", Store: "sql", TTL: time.Hour},
		{Name: "sessions", TTL: 30 * time.Minute},
	}

	tpl, ok := cfg.TemplateFor("orders")
	require.True(t, ok)
	assert.Equal(t, "sql", tpl.Store)
	assert.Equal(t, time.Hour, tpl.TTL)

	_, ok = cfg.TemplateFor("unknown")
	assert.False(t, ok)
}

func TestSQLConfig_ResolveDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   SQLConfig
		expected string
	}{
		{
			name: "postgres DSN",
			config: SQLConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=user password=pass dbname=dbname sslmode=disable",
		},
		{
			name: "mysql DSN",
			config: SQLConfig{
				Driver:   "mysql",
				Host:     "localhost",
				Port:     3306,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
			},
			expected: "user:pass@tcp(localhost:3306)/dbname?parseTime=true",
		},
		{
			name: "sqlite DSN",
			config: SQLConfig{
				Driver: "sqlite",
				Name:   "/path/to/db.sqlite",
			},
			expected: "/path/to/db.sqlite",
		},
		{
			name: "explicit DSN wins",
			config: SQLConfig{
				Driver: "postgres",
				DSN:    "postgres://u:p@h/d",
				Host:   "ignored",
			},
			expected: "postgres://u:p@h/d",
		},
		{
			name: "unknown driver",
			config: SQLConfig{
				Driver: "unknown",
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.ResolveDSN())
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	// 创建有效配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8080
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 不应该 panic
	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 8080, cfg.Server.HTTPPort)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	// 创建无效配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0644)
	require.NoError(t, err)

	// 应该 panic
	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	os.Setenv("CACHEFLOW_PROVIDER_SCOPE", "env-only")
	defer os.Unsetenv("CACHEFLOW_PROVIDER_SCOPE")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.Provider.Scope)
}
