// Package history defines conversation messages and their persisted JSON form.
//
// Invariants:
// - A message role is either "user" or "bot".
// - Encoded history is a JSON array of {"role","text"} records in insertion order.
//
// Usage:
//
//	data, _ := history.Encode([]history.Message{history.User("hello")})
//	msgs, skipped, _ := history.Decode(data)
//	_, _ = msgs, skipped
package history
