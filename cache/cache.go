package cache

import (
	"context"
	"reflect"
)

// Cache is the contract every cache store implements. The manager treats
// instances as opaque beyond Name, Clear and Close; Get/Put/Remove form
// the data plane exposed to callers.
//
// Lookups return ErrNotFound on a miss. Clear and Close must be safe to
// call more than once: teardown paths may reach an entry repeatedly.
type Cache interface {
	// Name returns the cache name the entry was registered under.
	Name() string

	// KeyType and ValueType report the declared runtime types.
	// WildcardType on both sides denotes an untyped cache.
	KeyType() reflect.Type
	ValueType() reflect.Type

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key any) (any, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key, value any) error

	// Remove deletes the entry for key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key any) error

	// Clear discards all entries without closing the cache.
	Clear(ctx context.Context) error

	// Close releases the cache's resources. Further data-plane calls
	// fail; Close itself stays idempotent.
	Close() error
}

// Factory constructs the backing store for a cache the manager is about
// to register. It is invoked at most once per (name, signature) even
// under concurrent demand. Returning an error aborts registration and
// leaves no trace in the manager.
type Factory func(ctx context.Context, name string, cfg Config) (Cache, error)
