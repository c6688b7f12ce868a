package cache

import (
	"context"
	"reflect"
)

// View is a compile-time typed facade over an untyped Cache. It converts
// between the static types K, V and the dynamic values the store carries,
// surfacing TYPE_MISMATCH instead of panicking assertions.
type View[K comparable, V any] struct {
	c   Cache
	sig TypeSignature
}

// Typed wraps c in a typed view after verifying the cache's declared
// signature admits K and V. Wildcard sides admit any requested type.
func Typed[K comparable, V any](c Cache) (*View[K, V], error) {
	want := SignatureOf[K, V]()
	if err := admits(c.KeyType(), want.KeyType(), "key"); err != nil {
		return nil, err
	}
	if err := admits(c.ValueType(), want.ValueType(), "value"); err != nil {
		return nil, err
	}
	return &View[K, V]{c: c, sig: want}, nil
}

func admits(declared, requested reflect.Type, side string) error {
	if declared == nil || declared == WildcardType || declared == requested {
		return nil
	}
	return Errorf(ErrCodeTypeMismatch, "declared %s type %s does not match requested %s", side, declared, requested)
}

// Unwrap returns the underlying untyped cache.
func (v *View[K, V]) Unwrap() Cache { return v.c }

// Name returns the underlying cache name.
func (v *View[K, V]) Name() string { return v.c.Name() }

// Get returns the typed value stored under key, or ErrNotFound.
func (v *View[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	raw, err := v.c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	val, ok := raw.(V)
	if !ok {
		return zero, Errorf(ErrCodeTypeMismatch, "cached value is %T, want %s", raw, v.sig.ValueType())
	}
	return val, nil
}

// Put stores value under key.
func (v *View[K, V]) Put(ctx context.Context, key K, value V) error {
	return v.c.Put(ctx, key, value)
}

// Remove deletes the entry for key.
func (v *View[K, V]) Remove(ctx context.Context, key K) error {
	return v.c.Remove(ctx, key)
}

// CreateTyped explicitly creates a cache on m whose runtime types are
// derived from K and V, and returns it as a typed view. Type fields
// already present on cfg are overwritten.
func CreateTyped[K comparable, V any](ctx context.Context, m *Manager, name string, cfg Config) (*View[K, V], error) {
	sig := SignatureOf[K, V]()
	cfg.KeyType = sig.KeyType()
	cfg.ValueType = sig.ValueType()
	c, err := m.CreateCache(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	return Typed[K, V](c)
}

// LookupTyped resolves name on m by the signature derived from K and V.
// Like Manager.LookupCache, a miss is (nil, false, nil).
func LookupTyped[K comparable, V any](m *Manager, name string) (*View[K, V], bool, error) {
	sig := SignatureOf[K, V]()
	c, ok, err := m.LookupCache(name, sig.KeyType(), sig.ValueType())
	if err != nil || !ok {
		return nil, false, err
	}
	v, verr := Typed[K, V](c)
	if verr != nil {
		return nil, false, verr
	}
	return v, true, nil
}
