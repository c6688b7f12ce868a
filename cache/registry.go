package cache

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// registry is the two-level concurrent index behind a Manager: cache name
// on the outer level, type signature on the inner one. The same name may
// hold several caches, one per distinct signature.
//
// Reads take the RWMutex read lock. Construction goes through a
// singleflight group keyed per (name, signature), so concurrent demand for
// the same variant invokes the factory at most once while demand for
// different variants proceeds independently.
type registry struct {
	mu     sync.RWMutex
	caches map[string]map[TypeSignature]Cache

	// sigIDs interns signatures into stable numeric ids used to build
	// singleflight keys. reflect.Type values have no portable string
	// identity, the intern table gives them one.
	sigIDs    map[TypeSignature]uint64
	nextSigID uint64

	group singleflight.Group
}

func newRegistry() *registry {
	return &registry{
		caches: make(map[string]map[TypeSignature]Cache),
		sigIDs: make(map[TypeSignature]uint64),
	}
}

// lookup returns the cache registered under (name, sig), if any.
func (r *registry) lookup(name string, sig TypeSignature) (Cache, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caches[name][sig]
	return c, ok
}

// nameExists reports whether any signature is registered under name.
func (r *registry) nameExists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caches[name]) > 0
}

// getOrCreate resolves (name, sig) to a cache. With createIfMissing false
// it is a pure lookup. With createIfMissing true a miss invokes factory,
// at most once across concurrent callers of the same (name, sig); every
// caller then observes the identical instance. A factory error registers
// nothing and is returned to all waiters of that flight.
func (r *registry) getOrCreate(ctx context.Context, name string, sig TypeSignature, createIfMissing bool, factory func(ctx context.Context) (Cache, error)) (Cache, bool, error) {
	if c, ok := r.lookup(name, sig); ok {
		return c, true, nil
	}
	if !createIfMissing {
		return nil, false, nil
	}

	v, err, _ := r.group.Do(r.flightKey(name, sig), func() (any, error) {
		// A previous flight may have registered the entry between our
		// miss and this call.
		if c, ok := r.lookup(name, sig); ok {
			return c, nil
		}
		c, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		r.insert(name, sig, c)
		return c, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(Cache), true, nil
}

func (r *registry) insert(name string, sig TypeSignature, c Cache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySig := r.caches[name]
	if bySig == nil {
		bySig = make(map[TypeSignature]Cache)
		r.caches[name] = bySig
	}
	bySig[sig] = c
}

// removeAll unregisters every signature under name and returns the removed
// caches. A create still in flight when removeAll runs may re-register the
// name afterwards; destroy makes no linearizability promise against
// concurrent creates.
func (r *registry) removeAll(name string) []Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	bySig := r.caches[name]
	if len(bySig) == 0 {
		return nil
	}
	removed := make([]Cache, 0, len(bySig))
	for _, c := range bySig {
		removed = append(removed, c)
	}
	delete(r.caches, name)
	return removed
}

// names returns a sorted snapshot of all registered cache names.
func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.caches))
	for name := range r.caches {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// snapshot returns every registered cache grouped by name.
func (r *registry) snapshot() map[string][]Cache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Cache, len(r.caches))
	for name, bySig := range r.caches {
		caches := make([]Cache, 0, len(bySig))
		for _, c := range bySig {
			caches = append(caches, c)
		}
		out[name] = caches
	}
	return out
}

// count returns the total number of registered caches across all names.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, bySig := range r.caches {
		n += len(bySig)
	}
	return n
}

func (r *registry) flightKey(name string, sig TypeSignature) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sigIDs[sig]
	if !ok {
		r.nextSigID++
		id = r.nextSigID
		r.sigIDs[sig] = id
	}
	return name + "\x00" + strconv.FormatUint(id, 10)
}
