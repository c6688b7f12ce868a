package cache

import (
	"context"
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults applied to managers constructed without an owning provider.
const (
	DefaultURI   = "cacheflow://default"
	DefaultScope = "default"
)

// Provider is the minimal view of the owning caching provider. It supplies
// identity fallbacks for managers constructed without explicit values and
// lets callers navigate from a manager back to its origin.
type Provider interface {
	DefaultURI() string
	DefaultScope() string
	DefaultProperties() Properties
}

// Options configures a Manager. Factory is the only required field: it
// builds the backing store for every cache the manager creates. URI, Scope
// and Properties form the manager's immutable identity; empty values fall
// back to the Provider's defaults, then to the package defaults.
type Options struct {
	URI        string
	Scope      string
	Properties Properties
	Provider   Provider
	Factory    Factory

	// OnClose runs once during Close, after all managed caches have been
	// closed and before the manager transitions to closed. Providers use
	// it to release shared backend resources.
	OnClose func() error
}

// Manager is the lifecycle facade over a registry of named, typed caches.
// A single manager may hold several caches under one name, distinguished
// by type signature. All methods are safe for concurrent use.
type Manager struct {
	uri      string
	scope    string
	props    Properties
	provider Provider
	id       string

	factory  Factory
	onClose  func() error
	registry *registry
	logger   *zap.Logger

	// closing guards teardown so OnClose runs at most once; closed is
	// the externally observable state and flips last.
	closing atomic.Bool
	closed  atomic.Bool
}

// NewManager builds an open manager. It fails with InvalidArgument when no
// factory is supplied. A nil logger falls back to a no-op logger.
func NewManager(opts Options, logger *zap.Logger) (*Manager, error) {
	if opts.Factory == nil {
		return nil, NewError(ErrCodeInvalidArgument, "cache factory must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	uri, scope, props := opts.URI, opts.Scope, opts.Properties
	if p := opts.Provider; p != nil {
		if uri == "" {
			uri = p.DefaultURI()
		}
		if scope == "" {
			scope = p.DefaultScope()
		}
		if props == nil {
			props = p.DefaultProperties()
		}
	}
	if uri == "" {
		uri = DefaultURI
	}
	if scope == "" {
		scope = DefaultScope
	}

	m := &Manager{
		uri:      uri,
		scope:    scope,
		props:    props.Clone(),
		provider: opts.Provider,
		id:       uuid.NewString(),
		factory:  opts.Factory,
		onClose:  opts.OnClose,
		registry: newRegistry(),
	}
	m.logger = logger.With(
		zap.String("component", "cache_manager"),
		zap.String("manager_id", m.id),
	)
	m.logger.Info("cache manager initialized",
		zap.String("uri", m.uri),
		zap.String("scope", m.scope),
	)
	return m, nil
}

// URI returns the manager's identifying URI. Safe after Close.
func (m *Manager) URI() string { return m.uri }

// Scope returns the resolution scope the manager was bound to. Safe after
// Close.
func (m *Manager) Scope() string { return m.scope }

// Properties returns a copy of the manager's property bag. Safe after
// Close.
func (m *Manager) Properties() Properties { return m.props.Clone() }

// Provider returns the owning provider, or nil for standalone managers.
// Safe after Close.
func (m *Manager) Provider() Provider { return m.provider }

// ID returns the unique instance id assigned at construction. Safe after
// Close.
func (m *Manager) ID() string { return m.id }

// CreateCache explicitly creates a cache under name with the given config.
// It fails with AlreadyExists when any cache is already registered under
// name, whatever its signature. The existence check is a plain read, not
// atomic with the subsequent creation; concurrent creators of the same
// name and signature all receive the identical instance.
func (m *Manager) CreateCache(ctx context.Context, name string, cfg Config) (Cache, error) {
	if err := m.assertOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, NewError(ErrCodeInvalidArgument, "cache name must not be empty")
	}
	if m.registry.nameExists(name) {
		return nil, Errorf(ErrCodeAlreadyExists, "cache %q already exists", name)
	}

	sig := cfg.Signature()
	c, _, err := m.registry.getOrCreate(ctx, name, sig, true, func(ctx context.Context) (Cache, error) {
		return m.factory(ctx, name, cfg)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("cache created",
		zap.String("cache", name),
		zap.Stringer("signature", sig),
	)
	return c, nil
}

// LookupCache returns the cache registered under name with exactly the
// (keyType, valueType) signature. A miss is not an error: the second
// return is false and nothing is constructed. Only CreateCache constructs.
func (m *Manager) LookupCache(name string, keyType, valueType reflect.Type) (Cache, bool, error) {
	if err := m.assertOpen(); err != nil {
		return nil, false, err
	}
	c, ok, err := m.registry.getOrCreate(context.Background(), name, NewTypeSignature(keyType, valueType), false, nil)
	return c, ok, err
}

// GetCache is LookupCache with the wildcard signature: it finds only
// caches created without declared types.
func (m *Manager) GetCache(name string) (Cache, bool, error) {
	return m.LookupCache(name, nil, nil)
}

// CacheNames returns a point-in-time sorted snapshot of registered names.
func (m *Manager) CacheNames() ([]string, error) {
	if err := m.assertOpen(); err != nil {
		return nil, err
	}
	return m.registry.names(), nil
}

// DestroyCache removes every cache registered under name, then clears and
// closes each removed instance best effort. Destroying an unknown name is
// a no-op.
func (m *Manager) DestroyCache(ctx context.Context, name string) error {
	if name == "" {
		return NewError(ErrCodeInvalidArgument, "cache name must not be empty")
	}
	if err := m.assertOpen(); err != nil {
		return err
	}
	removed := m.registry.removeAll(name)
	if len(removed) == 0 {
		return nil
	}
	bulkRun(ctx, m.logger, removed, opClear, opClose)
	m.logger.Info("cache destroyed",
		zap.String("cache", name),
		zap.Int("entries", len(removed)),
	)
	return nil
}

// EnableManagement is declared for interface parity with full JCache-style
// providers; this manager does not ship management beans.
func (m *Manager) EnableManagement(name string, enabled bool) error {
	if err := m.assertOpen(); err != nil {
		return err
	}
	return NewError(ErrCodeNotSupported, "cache management is not supported")
}

// EnableStatistics is declared for interface parity with full JCache-style
// providers; statistics toggling is not supported.
func (m *Manager) EnableStatistics(name string, enabled bool) error {
	if err := m.assertOpen(); err != nil {
		return err
	}
	return NewError(ErrCodeNotSupported, "cache statistics are not supported")
}

// Close shuts the manager down: it snapshots all registered caches, closes
// each best effort, runs the OnClose hook, then transitions to closed.
// The transition happens last, so IsClosed turns true only after teardown
// finished. Closing an already closed manager logs a warning and returns
// nil. A create racing a close may slip past the snapshot; such an entry
// is simply missed by this teardown.
func (m *Manager) Close() error {
	if m.closed.Load() {
		m.logger.Warn("cache manager already closed, ignoring close")
		return nil
	}
	if !m.closing.CompareAndSwap(false, true) {
		m.logger.Warn("cache manager close already in progress, ignoring close")
		return nil
	}

	snap := m.registry.snapshot()
	names := make([]string, 0, len(snap))
	total := 0
	for name, caches := range snap {
		names = append(names, name)
		total += len(caches)
	}
	sort.Strings(names)

	ctx := context.Background()
	for _, name := range names {
		bulkRun(ctx, m.logger, snap[name], opClose)
	}

	var err error
	if m.onClose != nil {
		if err = m.onClose(); err != nil {
			m.logger.Error("manager close hook failed", zap.Error(err))
		}
	}

	m.closed.Store(true)
	m.logger.Info("cache manager closed", zap.Int("caches", total))
	return err
}

// IsClosed reports the manager state with no side effects. Safe after
// Close.
func (m *Manager) IsClosed() bool {
	return m.closed.Load()
}

func (m *Manager) assertOpen() error {
	if m.closed.Load() {
		return NewError(ErrCodeIllegalState, "cache manager is closed")
	}
	return nil
}
