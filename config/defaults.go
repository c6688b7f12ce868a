// =============================================================================
// 📦 CacheFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Provider:  DefaultProviderConfig(),
		Defaults:  DefaultDefaultsConfig(),
		Caches:    nil,
		Stores:    DefaultStoresConfig(),
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultProviderConfig 返回默认提供者身份配置
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		URI:        "cacheflow://default",
		Scope:      "default",
		Properties: nil,
	}
}

// DefaultDefaultsConfig 返回缓存默认参数
func DefaultDefaultsConfig() DefaultsConfig {
	return DefaultsConfig{
		Store:    "memory",
		TTL:      0,
		Capacity: 0,
	}
}

// DefaultStoresConfig 返回默认存储后端配置
func DefaultStoresConfig() StoresConfig {
	return StoresConfig{
		Memory: DefaultMemoryConfig(),
		Redis:  DefaultRedisConfig(),
		SQL:    DefaultSQLConfig(),
	}
}

// DefaultMemoryConfig 返回默认内存存储配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		JanitorInterval: 1 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		TLS:          false,
		KeyPrefix:    "cacheflow",
	}
}

// DefaultSQLConfig 返回默认 SQL 存储配置
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		Enabled:         false,
		Driver:          "sqlite",
		DSN:             "",
		Host:            "localhost",
		Port:            5432,
		User:            "cacheflow",
		Password:        "",
		Name:            "cacheflow.db",
		SSLMode:         "disable",
		AutoMigrate:     true,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		JanitorInterval: 1 * time.Minute,
		JanitorBatch:    500,
		JanitorRate:     4,
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		APIKey:          "",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "cacheflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "cacheflow",
	}
}
