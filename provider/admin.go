package provider

import (
	"context"
	"sync"

	"github.com/BaSui01/cacheflow/cache"
)

// Admin is the management surface over one manager: listing, template-aware
// creation, name-based resolution and teardown. It remembers the signature
// of every cache it creates, which lets it find typed caches again from
// nothing but a name — the manager itself only answers exact-signature
// lookups.
//
// An Admin follows its manager's lifecycle: once the manager closes, every
// operation reports the manager's illegal state.
type Admin struct {
	provider *CachingProvider
	manager  *cache.Manager

	mu         sync.RWMutex
	signatures map[string]cache.TypeSignature
}

// Admin returns the management surface over the provider's default
// manager, creating the manager on first call. The same Admin is returned
// on every call.
func (p *CachingProvider) Admin() (*Admin, error) {
	p.adminOnce.Do(func() {
		m, err := p.GetManager("", "", nil)
		if err != nil {
			p.adminErr = err
			return
		}
		p.admin = NewAdmin(p, m)
	})
	return p.admin, p.adminErr
}

// NewAdmin builds a management surface over an explicit manager issued by
// the provider.
func NewAdmin(p *CachingProvider, m *cache.Manager) *Admin {
	return &Admin{
		provider:   p,
		manager:    m,
		signatures: make(map[string]cache.TypeSignature),
	}
}

// Manager returns the managed manager.
func (a *Admin) Manager() *cache.Manager { return a.manager }

// CacheNames lists the names registered in the managed manager, sorted.
func (a *Admin) CacheNames() ([]string, error) {
	return a.manager.CacheNames()
}

// CreateCache creates a cache, filling blanks from the name's template and
// then from the provider defaults: a zero TTL or capacity inherits, and a
// fully untyped request inherits the template's declared types. A non-empty
// store pins the cache to that backend; otherwise the template and default
// resolution applies. The recorded signature makes the cache resolvable by
// name afterwards.
func (a *Admin) CreateCache(ctx context.Context, name, store string, cfg cache.Config) (cache.Cache, error) {
	if name == "" {
		return nil, cache.NewError(cache.ErrCodeInvalidArgument, "cache name must not be empty")
	}

	if tpl, ok := a.provider.template(name); ok {
		if cfg.KeyType == nil && cfg.ValueType == nil {
			cfg.KeyType = tpl.cfg.KeyType
			cfg.ValueType = tpl.cfg.ValueType
		}
		if cfg.TTL == 0 {
			cfg.TTL = tpl.cfg.TTL
		}
		if cfg.Capacity == 0 {
			cfg.Capacity = tpl.cfg.Capacity
		}
	}
	defaults := a.provider.defaultsSnapshot()
	if cfg.TTL == 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = defaults.Capacity
	}

	var undo func()
	if store != "" {
		if !validStore(store) {
			return nil, cache.Errorf(cache.ErrCodeInvalidArgument, "unknown store %q", store)
		}
		undo = a.provider.bindStore(name, store)
	}

	c, err := a.manager.CreateCache(ctx, name, cfg)
	if err != nil {
		if undo != nil {
			undo()
		}
		return nil, err
	}

	a.mu.Lock()
	a.signatures[name] = cfg.Signature()
	a.mu.Unlock()
	return c, nil
}

// ResolveCache finds a cache by name alone. It tries the signature recorded
// at creation, then the signature the name's template declares, then the
// wildcard signature. A miss on all three returns found=false without
// error.
func (a *Admin) ResolveCache(name string) (cache.Cache, bool, error) {
	a.mu.RLock()
	sig, recorded := a.signatures[name]
	a.mu.RUnlock()
	if recorded {
		c, ok, err := a.manager.LookupCache(name, sig.KeyType(), sig.ValueType())
		if err != nil || ok {
			return c, ok, err
		}
		// Record went stale: the cache was destroyed through the raw
		// manager. Fall through to the remaining probes.
	}

	if tpl, ok := a.provider.template(name); ok {
		c, found, err := a.manager.LookupCache(name, tpl.cfg.KeyType, tpl.cfg.ValueType)
		if err != nil || found {
			return c, found, err
		}
	}

	return a.manager.GetCache(name)
}

// DestroyCache destroys every cache under name and forgets the recorded
// signature and any explicit store binding.
func (a *Admin) DestroyCache(ctx context.Context, name string) error {
	if err := a.manager.DestroyCache(ctx, name); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.signatures, name)
	a.mu.Unlock()
	a.provider.unbindStore(name)
	return nil
}
