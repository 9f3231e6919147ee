// Package cache implements the friendbot cache contracts: a volatile
// in-memory store with per-key TTL eviction, and a durable JSON store layered
// over a pluggable key/value backend (sqlite, with an in-memory fallback
// selected lazily when the real backend is unreachable).
package cache
