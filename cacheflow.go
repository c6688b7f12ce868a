// Package cacheflow provides a top-level convenience entry point for creating
// caching providers with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/cacheflow"
//
//	p, err := cacheflow.Open()                                      // 纯内存
//	p, err := cacheflow.Open(cacheflow.WithRedis("localhost:6379")) // Redis 后端
//	p, err := cacheflow.Open(cacheflow.WithSQLite("cache.db"))      // SQLite 持久化
//
//	users, err := cacheflow.Cache[string, User](ctx, p, "users")
//
// This is a thin wrapper around [quick.Open]; both produce identical results.
// Use this package when you prefer the shorter import path.
package cacheflow

import (
	"context"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/provider"
	"github.com/BaSui01/cacheflow/quick"
)

// Option configures the provider created by [Open].
type Option = quick.Option

// Provider is the top-level cache provider. Close it to release backend
// connections.
type Provider = provider.CachingProvider

// Open creates a [provider.CachingProvider] with minimal configuration.
// With no options it serves in-memory caches only.
func Open(opts ...Option) (*Provider, error) {
	return quick.Open(opts...)
}

// Cache returns the typed cache with the given name from the provider's
// default manager, creating it on first use.
func Cache[K comparable, V any](ctx context.Context, p *Provider, name string) (cache.Cache, error) {
	return quick.Cache[K, V](ctx, p, name)
}

// Re-export backend shortcuts so callers never need to import quick/.

// WithConfig uses a fully assembled configuration.
var WithConfig = quick.WithConfig

// WithScope sets the provider scope.
var WithScope = quick.WithScope

// WithRedis enables the Redis store at addr and makes it the default backend.
var WithRedis = quick.WithRedis

// WithSQLite enables the SQL store on a SQLite database file and makes it
// the default backend.
var WithSQLite = quick.WithSQLite

// WithDefaultTTL sets the expiry inherited by caches created without one.
var WithDefaultTTL = quick.WithDefaultTTL

// WithDefaultCapacity sets the entry cap inherited by caches created
// without one.
var WithDefaultCapacity = quick.WithDefaultCapacity

// WithLogger sets a custom zap logger.
var WithLogger = quick.WithLogger
