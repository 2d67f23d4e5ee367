// Package store persists conversation state as independent string keys.
//
// Invariants:
// - Each write touches exactly one key and is durable when it returns.
// - Load never fails: absent, unreadable or corrupt entries fall back to defaults.
// - Backends (memory, file, sqlite, redis) only move opaque strings; the
//   Store owns serialization.
//
// Usage:
//
//	kv, _ := store.Open(ctx, store.Options{Backend: store.BackendFile, Dir: "/tmp/pasokh"})
//	s := store.New(kv, logger, "blue")
//	state := s.Load(ctx)
//	_ = s.SaveMessages(ctx, state.Messages)
package store
