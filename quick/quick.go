// =============================================================================
// Package quick — One-Line Cache Construction
// =============================================================================
// Provides a convenience entry point for creating caching providers with
// minimal boilerplate. Delegates to config defaults and provider.New
// internally.
//
// The package lives under quick/ (not root) so the root facade can re-export
// it without pulling config assembly into the top-level package.
//
// Usage:
//
//	import "github.com/BaSui01/cacheflow/quick"
//
//	p, err := quick.Open()                                   // 纯内存
//	p, err := quick.Open(quick.WithRedis("localhost:6379"))  // Redis 后端
//	p, err := quick.Open(quick.WithSQLite("cache.db"))       // SQLite 持久化
//
//	users, err := quick.Cache[string, User](ctx, p, "users")
//
// =============================================================================
package quick

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/config"
	"github.com/BaSui01/cacheflow/provider"
)

// Option configures the provider created by Open.
type Option func(*options)

type options struct {
	cfg    *config.Config
	scope  string
	logger *zap.Logger

	// Backend shortcut fields — used when cfg is nil.
	redisAddr  string
	sqlitePath string
	ttl        time.Duration
	capacity   int
}

// WithConfig uses a fully assembled configuration. Backend shortcuts
// (WithRedis, WithSQLite, WithDefaultTTL, WithDefaultCapacity) are ignored
// when a config is supplied.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithScope sets the provider scope. Caches in different scopes never see
// each other's entries, even on shared backends.
func WithScope(scope string) Option {
	return func(o *options) { o.scope = scope }
}

// WithRedis enables the Redis store at addr and makes it the default backend.
func WithRedis(addr string) Option {
	return func(o *options) { o.redisAddr = addr }
}

// WithSQLite enables the SQL store on a SQLite database file and makes it
// the default backend. The schema is created automatically.
func WithSQLite(path string) Option {
	return func(o *options) { o.sqlitePath = path }
}

// WithDefaultTTL sets the expiry inherited by caches created without one.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithDefaultCapacity sets the entry cap inherited by caches created
// without one.
func WithDefaultCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open creates a caching provider with minimal configuration. With no
// options it serves in-memory caches only. The caller owns the provider
// and must Close it to release backend connections.
func Open(opts ...Option) (*provider.CachingProvider, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Provider.URI = "cacheflow://quick"

		if o.ttl > 0 {
			cfg.Defaults.TTL = o.ttl
		}
		if o.capacity > 0 {
			cfg.Defaults.Capacity = o.capacity
		}
		if o.redisAddr != "" {
			cfg.Stores.Redis.Enabled = true
			cfg.Stores.Redis.Addr = o.redisAddr
			cfg.Defaults.Store = "redis"
		}
		if o.sqlitePath != "" {
			cfg.Stores.SQL.Enabled = true
			cfg.Stores.SQL.Driver = "sqlite"
			cfg.Stores.SQL.Name = o.sqlitePath
			cfg.Stores.SQL.AutoMigrate = true
			cfg.Defaults.Store = "sql"
		}
	}
	if o.scope != "" {
		cfg.Provider.Scope = o.scope
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return provider.New(cfg, logger)
}

// Cache returns the typed cache with the given name from the provider's
// default manager, creating it on first use. Creation inherits the name's
// template and the provider defaults. A name already taken by a differently
// typed cache surfaces the manager's name conflict.
func Cache[K comparable, V any](ctx context.Context, p *provider.CachingProvider, name string) (cache.Cache, error) {
	admin, err := p.Admin()
	if err != nil {
		return nil, err
	}

	sig := cache.SignatureOf[K, V]()
	if c, ok, err := admin.Manager().LookupCache(name, sig.KeyType(), sig.ValueType()); err != nil {
		return nil, err
	} else if ok {
		return c, nil
	}

	c, err := admin.CreateCache(ctx, name, "", cache.ConfigFor[K, V]())
	if err != nil && cache.IsCode(err, cache.ErrCodeAlreadyExists) {
		// 并发创建竞争：再按精确签名解析一次。类型冲突时二次查找
		// 仍然落空，保留原始冲突错误。
		if c2, ok, err2 := admin.Manager().LookupCache(name, sig.KeyType(), sig.ValueType()); err2 == nil && ok {
			return c2, nil
		}
	}
	return c, err
}
