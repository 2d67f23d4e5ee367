package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown storage backend")

// KV is a durable string key/value store
type KV interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete succeeds for absent keys.
	Delete(ctx context.Context, key string) error
	Name() string
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend    string
	Dir        string
	SQLitePath string
	Redis      RedisOptions
}

// Backends lists supported backend names
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis}
}

// Open constructs the configured backend
func Open(ctx context.Context, opts Options) (KV, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendFile, "":
		return NewFileKV(opts.Dir)
	case BackendSQLite:
		return NewSQLiteKV(ctx, opts.SQLitePath)
	case BackendRedis:
		return NewRedisKV(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("key cannot contain '..'")
	}
	if strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("key cannot contain path separators")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("key cannot contain null bytes")
	}
	return nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}
