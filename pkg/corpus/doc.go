// Package corpus loads the static knowledge base that queries are matched against.
//
// Invariants:
// - A corpus is immutable once built; callers only get copies of its entries.
// - Entry identity is its position, which breaks ties during matching.
// - Every entry has at least one non-blank keyword and a non-blank answer.
package corpus
