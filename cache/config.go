package cache

import (
	"reflect"
	"time"
)

// Config describes a single cache to be constructed by a Factory.
// KeyType and ValueType declare the runtime types enforced by the cache;
// leaving them nil produces an untyped (wildcard) cache. TTL and Capacity
// are hints for the backing store: zero TTL means entries never expire,
// zero capacity means unbounded.
type Config struct {
	KeyType   reflect.Type  `json:"-" yaml:"-"`
	ValueType reflect.Type  `json:"-" yaml:"-"`
	TTL       time.Duration `json:"ttl" yaml:"ttl"`
	Capacity  int           `json:"capacity" yaml:"capacity"`
}

// DefaultConfig returns an untyped, unbounded, non-expiring cache config.
func DefaultConfig() Config {
	return Config{}
}

// ConfigFor builds a Config whose runtime types are derived from K and V.
func ConfigFor[K comparable, V any]() Config {
	sig := SignatureOf[K, V]()
	return Config{KeyType: sig.KeyType(), ValueType: sig.ValueType()}
}

// Signature returns the type signature the config resolves to.
func (c Config) Signature() TypeSignature {
	return NewTypeSignature(c.KeyType, c.ValueType)
}

// WithTTL returns a copy of the config with the given entry lifetime.
func (c Config) WithTTL(ttl time.Duration) Config {
	c.TTL = ttl
	return c
}

// WithCapacity returns a copy of the config with the given entry limit.
func (c Config) WithCapacity(capacity int) Config {
	c.Capacity = capacity
	return c
}

// Properties carries provider-specific key/value settings, part of a
// manager's identity alongside its URI and scope.
type Properties map[string]string

// Get returns the value for key, or def when the key is absent.
func (p Properties) Get(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Clone returns a shallow copy so callers cannot mutate manager identity.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
