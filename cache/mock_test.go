package cache

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// fakeCache is the in-package test double. Error and panic injection
// fields steer teardown paths; atomic counters record lifecycle calls.
type fakeCache struct {
	name string
	sig  TypeSignature

	mu   sync.Mutex
	data map[any]any

	getErr   error
	putErr   error
	clearErr error
	closeErr error

	clearPanic bool
	closePanic bool

	clearCalls atomic.Int32
	closeCalls atomic.Int32
	closed     atomic.Bool
}

func newFakeCache(name string, sig TypeSignature) *fakeCache {
	return &fakeCache{name: name, sig: sig, data: make(map[any]any)}
}

func (f *fakeCache) Name() string            { return f.name }
func (f *fakeCache) KeyType() reflect.Type   { return f.sig.KeyType() }
func (f *fakeCache) ValueType() reflect.Type { return f.sig.ValueType() }

func (f *fakeCache) Get(_ context.Context, key any) (any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *fakeCache) Put(_ context.Context, key, value any) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeCache) Remove(_ context.Context, key any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeCache) Clear(context.Context) error {
	f.clearCalls.Add(1)
	if f.clearPanic {
		panic("clear blew up")
	}
	if f.clearErr != nil {
		return f.clearErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make(map[any]any)
	return nil
}

func (f *fakeCache) Close() error {
	f.closeCalls.Add(1)
	if f.closePanic {
		panic("close blew up")
	}
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed.Store(true)
	return nil
}

// fakeFactory builds fakeCache instances and counts invocations.
type fakeFactory struct {
	calls atomic.Int32
	err   error

	mu      sync.Mutex
	created []*fakeCache
}

func (ff *fakeFactory) build(_ context.Context, name string, cfg Config) (Cache, error) {
	ff.calls.Add(1)
	if ff.err != nil {
		return nil, ff.err
	}
	c := newFakeCache(name, cfg.Signature())
	ff.mu.Lock()
	ff.created = append(ff.created, c)
	ff.mu.Unlock()
	return c, nil
}
