package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/config"
	"github.com/BaSui01/cacheflow/internal/metrics"
	"github.com/BaSui01/cacheflow/store/instrumented"
	"github.com/BaSui01/cacheflow/store/memory"
	redisstore "github.com/BaSui01/cacheflow/store/redis"
	sqlstore "github.com/BaSui01/cacheflow/store/sql"
)

// CachingProvider is the bootstrap layer that turns configuration into
// managers. It hands out one manager per (uri, scope, properties) identity,
// shares store backends between them, and owns their collective shutdown.
//
// Store backends open lazily: the Redis client and the SQL backend are not
// dialed until the first cache bound to them is created, so a provider whose
// caches all live in memory never touches the network.
type CachingProvider struct {
	logger    *zap.Logger
	collector *metrics.Collector
	tracer    oteltrace.Tracer

	// Identity defaults handed to managers constructed with blank fields.
	defaultURI   string
	defaultScope string
	defaultProps cache.Properties

	// Per-name cache templates, fixed at construction.
	templates map[string]template

	// Hot-swappable tuning (Retune): cache defaults and store settings
	// consulted by later creations and backend opens.
	tuneMu   sync.RWMutex
	defaults config.DefaultsConfig
	stores   config.StoresConfig

	// Shared store backends, opened on first use.
	backendMu sync.Mutex
	redis     *redisstore.Client
	sqlB      *sqlstore.Backend

	// Explicit name->store bindings from admin creates. Consulted before
	// templates and defaults.
	overrideMu sync.RWMutex
	overrides  map[string]string

	mu       sync.Mutex
	managers map[string]*cache.Manager

	adminOnce sync.Once
	admin     *Admin
	adminErr  error

	closed atomic.Bool
}

// template is a resolved cache template: the store it binds to and the
// cache.Config its type hints translate into.
type template struct {
	store string
	cfg   cache.Config
}

var _ cache.Provider = (*CachingProvider)(nil)

// Option configures a CachingProvider.
type Option func(*CachingProvider)

// WithCollector attaches a metrics collector; caches created by the
// provider's managers are wrapped to record hits, misses and latencies.
func WithCollector(c *metrics.Collector) Option {
	return func(p *CachingProvider) {
		p.collector = c
	}
}

// WithTracer attaches an OpenTelemetry tracer; cache operations are
// wrapped in spans.
func WithTracer(t oteltrace.Tracer) Option {
	return func(p *CachingProvider) {
		p.tracer = t
	}
}

// New builds a provider from configuration. A nil cfg uses the package
// defaults; a nil logger logs nothing. Template type hints and store names
// are validated eagerly so a bad config fails here, not on first use.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*CachingProvider, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &CachingProvider{
		defaultURI:   cfg.Provider.URI,
		defaultScope: cfg.Provider.Scope,
		defaultProps: cache.Properties(cfg.Provider.Properties).Clone(),
		templates:    make(map[string]template, len(cfg.Caches)),
		defaults:     cfg.Defaults,
		stores:       cfg.Stores,
		overrides:    make(map[string]string),
		managers:     make(map[string]*cache.Manager),
	}
	p.logger = logger.With(zap.String("component", "caching_provider"))

	if p.defaultURI == "" {
		p.defaultURI = cache.DefaultURI
	}
	if p.defaultScope == "" {
		p.defaultScope = cache.DefaultScope
	}
	if s := p.defaults.Store; s != "" && !validStore(s) {
		return nil, fmt.Errorf("unknown default store %q", s)
	}

	for _, tpl := range cfg.Caches {
		if tpl.Store != "" && !validStore(tpl.Store) {
			return nil, fmt.Errorf("cache template %q: unknown store %q", tpl.Name, tpl.Store)
		}
		kt, err := cache.TypeFromHint(tpl.KeyType)
		if err != nil {
			return nil, fmt.Errorf("cache template %q: %w", tpl.Name, err)
		}
		vt, err := cache.TypeFromHint(tpl.ValueType)
		if err != nil {
			return nil, fmt.Errorf("cache template %q: %w", tpl.Name, err)
		}
		p.templates[tpl.Name] = template{
			store: tpl.Store,
			cfg: cache.Config{
				KeyType:   kt,
				ValueType: vt,
				TTL:       tpl.TTL,
				Capacity:  tpl.Capacity,
			},
		}
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger.Info("caching provider initialized",
		zap.String("uri", p.defaultURI),
		zap.String("scope", p.defaultScope),
		zap.Int("templates", len(p.templates)),
	)
	return p, nil
}

// DefaultURI returns the URI assigned to managers requested without one.
func (p *CachingProvider) DefaultURI() string { return p.defaultURI }

// DefaultScope returns the scope assigned to managers requested without
// one.
func (p *CachingProvider) DefaultScope() string { return p.defaultScope }

// DefaultProperties returns a copy of the default property bag.
func (p *CachingProvider) DefaultProperties() cache.Properties {
	return p.defaultProps.Clone()
}

// GetManager returns the manager identified by (uri, scope, properties),
// creating it on first request. Blank uri and scope and a nil property bag
// canonicalize to the provider defaults, so equal identities always reach
// the same instance. A manager found closed is evicted and replaced.
func (p *CachingProvider) GetManager(uri, scope string, props cache.Properties) (*cache.Manager, error) {
	if p.closed.Load() {
		return nil, cache.NewError(cache.ErrCodeIllegalState, "caching provider is closed")
	}
	if uri == "" {
		uri = p.defaultURI
	}
	if scope == "" {
		scope = p.defaultScope
	}
	if props == nil {
		props = p.defaultProps
	}
	key := managerKey(uri, scope, props)

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.managers[key]; ok {
		if !m.IsClosed() {
			return m, nil
		}
		delete(p.managers, key)
	}

	var m *cache.Manager
	m, err := cache.NewManager(cache.Options{
		URI:        uri,
		Scope:      scope,
		Properties: props,
		Provider:   p,
		Factory:    p.newFactory(scope),
		OnClose: func() error {
			p.evict(key, m)
			return nil
		},
	}, p.logger)
	if err != nil {
		return nil, err
	}
	p.managers[key] = m
	p.logger.Info("manager issued",
		zap.String("uri", uri),
		zap.String("scope", scope),
	)
	return m, nil
}

// evict drops the manager from the issue table if it is still the one
// registered under key. Runs from the manager's OnClose hook; callers of
// Manager.Close must therefore never hold p.mu.
func (p *CachingProvider) evict(key string, m *cache.Manager) {
	p.mu.Lock()
	if cur, ok := p.managers[key]; ok && cur == m {
		delete(p.managers, key)
	}
	p.mu.Unlock()
}

// CloseManager closes every issued manager whose identity matches
// (uri, scope), canonicalized the same way GetManager canonicalizes.
// Unknown identities are a quiet no-op.
func (p *CachingProvider) CloseManager(uri, scope string) error {
	if uri == "" {
		uri = p.defaultURI
	}
	if scope == "" {
		scope = p.defaultScope
	}

	p.mu.Lock()
	var victims []*cache.Manager
	for key, m := range p.managers {
		if m.URI() == uri && m.Scope() == scope {
			delete(p.managers, key)
			victims = append(victims, m)
		}
	}
	p.mu.Unlock()

	var errs []error
	for _, m := range victims {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close shuts down every issued manager, then the shared store backends.
// Errors are aggregated; repeated calls return nil.
func (p *CachingProvider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	victims := make([]*cache.Manager, 0, len(p.managers))
	for _, m := range p.managers {
		victims = append(victims, m)
	}
	p.managers = make(map[string]*cache.Manager)
	p.mu.Unlock()

	var errs []error
	for _, m := range victims {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	p.backendMu.Lock()
	if p.sqlB != nil {
		if err := p.sqlB.Close(); err != nil {
			errs = append(errs, err)
		}
		p.sqlB = nil
	}
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			errs = append(errs, err)
		}
		p.redis = nil
	}
	p.backendMu.Unlock()

	p.logger.Info("caching provider closed", zap.Int("managers", len(victims)))
	return errors.Join(errs...)
}

// IsClosed reports whether Close has been called.
func (p *CachingProvider) IsClosed() bool {
	return p.closed.Load()
}

// Retune applies the hot-reloadable parts of a freshly loaded config:
// cache defaults affect caches created afterwards, store settings affect
// backends opened afterwards. Already-open backends keep their settings.
func (p *CachingProvider) Retune(cfg *config.Config) {
	if cfg == nil {
		return
	}
	p.tuneMu.Lock()
	p.defaults = cfg.Defaults
	p.stores = cfg.Stores
	p.tuneMu.Unlock()
	p.logger.Debug("provider tuning updated",
		zap.String("default_store", cfg.Defaults.Store),
	)
}

// Pings returns a named ping function per enabled store backend, suitable
// for readiness checks. Pinging a backend that has not been used yet opens
// it.
func (p *CachingProvider) Pings() map[string]func(context.Context) error {
	p.tuneMu.RLock()
	redisEnabled := p.stores.Redis.Enabled
	sqlEnabled := p.stores.SQL.Enabled
	p.tuneMu.RUnlock()

	checks := make(map[string]func(context.Context) error)
	if redisEnabled {
		checks["redis"] = func(ctx context.Context) error {
			client, err := p.redisBackend()
			if err != nil {
				return err
			}
			return client.Ping(ctx)
		}
	}
	if sqlEnabled {
		checks["sql"] = func(ctx context.Context) error {
			backend, err := p.sqlBackend()
			if err != nil {
				return err
			}
			return backend.Ping(ctx)
		}
	}
	return checks
}

// newFactory builds the store-dispatching factory for a manager bound to
// scope. Each backend's sub-factory carries its own metrics label.
func (p *CachingProvider) newFactory(scope string) cache.Factory {
	memFactory := p.instrument(func(_ context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		return memory.New(name, cfg, p.memoryOptions(), p.logger), nil
	}, "memory")

	redisFactory := p.instrument(func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		client, err := p.redisBackend()
		if err != nil {
			return nil, err
		}
		return client.Factory(scope)(ctx, name, cfg)
	}, "redis")

	sqlFactory := p.instrument(func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		backend, err := p.sqlBackend()
		if err != nil {
			return nil, err
		}
		return backend.Factory(scope)(ctx, name, cfg)
	}, "sql")

	return func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		store := p.storeFor(name)
		switch store {
		case "memory":
			return memFactory(ctx, name, cfg)
		case "redis":
			return redisFactory(ctx, name, cfg)
		case "sql":
			return sqlFactory(ctx, name, cfg)
		default:
			return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "unknown store %q for cache %q", store, name)
		}
	}
}

// instrument wraps a factory with metrics and tracing when either is
// configured; otherwise the factory is returned untouched.
func (p *CachingProvider) instrument(f cache.Factory, backend string) cache.Factory {
	if p.collector == nil && p.tracer == nil {
		return f
	}
	return instrumented.Factory(f, backend, p.collector, p.tracer)
}

// storeFor resolves the store backend for a cache name: explicit admin
// binding, then template, then the configured default.
func (p *CachingProvider) storeFor(name string) string {
	p.overrideMu.RLock()
	s, bound := p.overrides[name]
	p.overrideMu.RUnlock()
	if bound {
		return s
	}
	if tpl, ok := p.templates[name]; ok && tpl.store != "" {
		return tpl.store
	}
	p.tuneMu.RLock()
	d := p.defaults.Store
	p.tuneMu.RUnlock()
	if d == "" {
		return "memory"
	}
	return d
}

// template returns the resolved template for name, if one was configured.
func (p *CachingProvider) template(name string) (template, bool) {
	tpl, ok := p.templates[name]
	return tpl, ok
}

// defaultsSnapshot returns the current cache defaults.
func (p *CachingProvider) defaultsSnapshot() config.DefaultsConfig {
	p.tuneMu.RLock()
	defer p.tuneMu.RUnlock()
	return p.defaults
}

// memoryOptions returns the current memory store settings.
func (p *CachingProvider) memoryOptions() memory.Config {
	p.tuneMu.RLock()
	defer p.tuneMu.RUnlock()
	return memory.Config{JanitorInterval: p.stores.Memory.JanitorInterval}
}

// bindStore records an explicit name->store binding and returns an undo
// that restores the previous state, for rollback on failed creation.
func (p *CachingProvider) bindStore(name, store string) (undo func()) {
	p.overrideMu.Lock()
	prev, had := p.overrides[name]
	p.overrides[name] = store
	p.overrideMu.Unlock()
	return func() {
		p.overrideMu.Lock()
		if had {
			p.overrides[name] = prev
		} else {
			delete(p.overrides, name)
		}
		p.overrideMu.Unlock()
	}
}

// unbindStore drops the explicit binding for a destroyed cache.
func (p *CachingProvider) unbindStore(name string) {
	p.overrideMu.Lock()
	delete(p.overrides, name)
	p.overrideMu.Unlock()
}

// redisBackend returns the shared Redis client, dialing it on first use.
func (p *CachingProvider) redisBackend() (*redisstore.Client, error) {
	p.backendMu.Lock()
	defer p.backendMu.Unlock()
	if p.redis != nil {
		return p.redis, nil
	}

	p.tuneMu.RLock()
	rc := p.stores.Redis
	p.tuneMu.RUnlock()
	if !rc.Enabled {
		return nil, cache.NewError(cache.ErrCodeInvalidArgument, "redis store is not enabled")
	}

	sc := redisstore.DefaultConfig()
	if rc.Addr != "" {
		sc.Addr = rc.Addr
	}
	sc.Password = rc.Password
	sc.DB = rc.DB
	sc.TLS = rc.TLS
	if rc.PoolSize > 0 {
		sc.PoolSize = rc.PoolSize
	}
	if rc.MinIdleConns > 0 {
		sc.MinIdleConns = rc.MinIdleConns
	}
	if rc.KeyPrefix != "" {
		sc.KeyPrefix = rc.KeyPrefix
	}

	client, err := redisstore.New(sc, p.logger)
	if err != nil {
		return nil, err
	}
	p.redis = client
	return client, nil
}

// sqlBackend returns the shared SQL backend, opening it on first use.
func (p *CachingProvider) sqlBackend() (*sqlstore.Backend, error) {
	p.backendMu.Lock()
	defer p.backendMu.Unlock()
	if p.sqlB != nil {
		return p.sqlB, nil
	}

	p.tuneMu.RLock()
	sqlc := p.stores.SQL
	p.tuneMu.RUnlock()
	if !sqlc.Enabled {
		return nil, cache.NewError(cache.ErrCodeInvalidArgument, "sql store is not enabled")
	}

	sc := sqlstore.DefaultConfig()
	if sqlc.Driver != "" {
		sc.Driver = sqlc.Driver
	}
	if dsn := sqlc.ResolveDSN(); dsn != "" {
		sc.DSN = dsn
	}
	sc.AutoMigrate = sqlc.AutoMigrate
	if sqlc.MaxIdleConns > 0 {
		sc.MaxIdleConns = sqlc.MaxIdleConns
	}
	if sqlc.MaxOpenConns > 0 {
		sc.MaxOpenConns = sqlc.MaxOpenConns
	}
	if sqlc.ConnMaxLifetime > 0 {
		sc.ConnMaxLifetime = sqlc.ConnMaxLifetime
	}
	sc.JanitorInterval = sqlc.JanitorInterval
	if sqlc.JanitorBatch > 0 {
		sc.JanitorBatch = sqlc.JanitorBatch
	}
	if sqlc.JanitorRate > 0 {
		sc.JanitorRate = sqlc.JanitorRate
	}

	backend, err := sqlstore.Open(sc, p.logger)
	if err != nil {
		return nil, err
	}
	p.sqlB = backend
	return backend, nil
}

func validStore(name string) bool {
	switch name {
	case "memory", "redis", "sql":
		return true
	}
	return false
}

// managerKey canonicalizes a manager identity into a map key. Property
// order is irrelevant: keys are sorted, so equal bags produce equal keys.
func managerKey(uri, scope string, props cache.Properties) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(uri)
	b.WriteByte(0)
	b.WriteString(scope)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
	}
	return b.String()
}
