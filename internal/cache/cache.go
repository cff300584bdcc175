// Package cache keeps validation reports so a document already graded under
// the current registry is not graded again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/validator"
)

// ErrMiss is returned when no live report is stored under a key
var ErrMiss = errors.New("report not cached")

// Cache stores reports by key. Reports handed out by Get are owned by the
// caller.
type Cache interface {
	Get(ctx context.Context, key string) (*validator.Report, error)

	// Put stores report under key. A ttl of zero uses the backend default.
	Put(ctx context.Context, key string, report *validator.Report, ttl time.Duration) error

	// Purge drops every report the backend holds and returns how many it dropped
	Purge(ctx context.Context) (int, error)

	Close() error
}

// Settings are shared by every backend
type Settings struct {
	// TTL applies when Put is called without one. Zero keeps reports until purged.
	TTL time.Duration
	// Prefix namespaces keys, so several tools can share one Redis database
	Prefix string
	// MaxEntries bounds the memory backend; zero means unbounded
	MaxEntries int
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		TTL:        10 * time.Minute,
		Prefix:     "metacheck:",
		MaxEntries: 10000,
	}
}

func (s Settings) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return s.TTL
	}
	return ttl
}

// Backend names accepted by Open
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and configures a backend
type Options struct {
	Backend  string
	Settings Settings
	Redis    RedisConfig
}

// Open creates the configured backend. BackendNone yields a nil Cache.
func Open(opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(opts.Settings), nil
	case BackendRedis:
		rc, err := DialRedis(opts.Redis, opts.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Redis.Addr, err)
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", opts.Backend)
	}
}
