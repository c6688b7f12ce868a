// Package provider wires configuration, store backends and metrics into
// cache managers.
//
// CachingProvider is the entry point: it issues one Manager per
// (uri, scope, properties) identity, deduplicating concurrent and repeated
// requests, and backs every manager with a factory that picks the store
// for each cache — explicit admin binding first, then the name's
// configured template, then the default store. Redis and SQL backends are
// shared across managers and dialed lazily on first use.
//
// Admin layers a name-only management surface on top of one manager. The
// manager resolves caches by exact type signature; Admin records the
// signature of everything it creates so the HTTP admin API can address
// caches by bare name.
package provider
