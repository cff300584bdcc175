package cache

import (
	"context"
	"errors"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/document"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"go.uber.org/zap"
)

// CachedValidator serves full reports from a cache before running the validators.
// Cache failures are logged and the document is validated directly.
type CachedValidator struct {
	validator   *validator.Validator
	cache       Cache
	ttl         time.Duration
	fingerprint string
	logger      *zap.Logger
}

// NewCachedValidator wraps v. A nil cache disables caching. Keys carry the
// fingerprint of v's registry, so reports cached under other declarations
// are never served.
func NewCachedValidator(v *validator.Validator, c Cache, ttl time.Duration, logger *zap.Logger) *CachedValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedValidator{
		validator:   v,
		cache:       c,
		ttl:         ttl,
		fingerprint: v.Registry().Fingerprint(),
		logger:      logger,
	}
}

// Validator returns the wrapped validator
func (cv *CachedValidator) Validator() *validator.Validator {
	return cv.validator
}

// Fingerprint returns the registry fingerprint used in cache keys
func (cv *CachedValidator) Fingerprint() string {
	return cv.fingerprint
}

// Close releases the cache
func (cv *CachedValidator) Close() error {
	if cv.cache == nil {
		return nil
	}
	return cv.cache.Close()
}

// Validate returns the report for doc, from the cache when possible. The
// second result reports whether the report came from the cache.
func (cv *CachedValidator) Validate(ctx context.Context, kind string, doc document.Document) (*validator.Report, bool, error) {
	if cv.cache == nil {
		report, err := cv.validator.Validate(kind, doc)
		return report, false, err
	}

	key, err := Key(cv.fingerprint, kind, doc)
	if err != nil {
		cv.logger.Warn("cannot derive cache key", zap.String("kind", kind), zap.Error(err))
		report, err := cv.validator.Validate(kind, doc)
		return report, false, err
	}

	report, err := cv.cache.Get(ctx, key)
	switch {
	case err == nil:
		return report, true, nil
	case !errors.Is(err, ErrMiss):
		cv.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}

	report, err = cv.validator.Validate(kind, doc)
	if err != nil {
		return nil, false, err
	}

	if err := cv.cache.Put(ctx, key, report, cv.ttl); err != nil {
		cv.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
	return report, false, nil
}
