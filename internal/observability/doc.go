// Package observability exposes Prometheus metrics for lookups, conversations and persistence.
package observability
