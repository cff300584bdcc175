package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/conduit-lang/metadata-validator/internal/validator"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hash fields a report is stored under
const (
	fieldID        = "id"
	fieldKind      = "kind"
	fieldCore      = "core"
	fieldStates    = "fields"
	fieldCreatedAt = "created_at"
)

const purgeBatch = 100

// RedisConfig locates the Redis server
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DefaultRedisConfig returns the address of a local Redis
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379"}
}

// RedisCache stores each report as a hash under Prefix+key, so the core state
// of a cached report can be read with plain redis-cli.
type RedisCache struct {
	client   *redis.Client
	settings Settings
}

// DialRedis connects to the configured server and checks it answers
func DialRedis(cfg RedisConfig, settings Settings) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisCache(client, settings), nil
}

// NewRedisCache uses an existing client. Close closes the client.
func NewRedisCache(client *redis.Client, settings Settings) *RedisCache {
	return &RedisCache{client: client, settings: settings}
}

// Get reads the report stored under key
func (r *RedisCache) Get(ctx context.Context, key string) (*validator.Report, error) {
	values, err := r.client.HGetAll(ctx, r.settings.Prefix+key).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrMiss
	}

	report, err := decodeReport(values)
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return report, nil
}

// Put replaces whatever is stored under key with report
func (r *RedisCache) Put(ctx context.Context, key string, report *validator.Report, ttl time.Duration) error {
	values, err := encodeReport(report)
	if err != nil {
		return err
	}

	full := r.settings.Prefix + key
	ttl = r.settings.ttlOrDefault(ttl)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full)
		pipe.HSet(ctx, full, values)
		if ttl > 0 {
			pipe.Expire(ctx, full, ttl)
		}
		return nil
	})
	return err
}

// Purge deletes every key under the prefix. Keys outside it are left alone.
func (r *RedisCache) Purge(ctx context.Context) (int, error) {
	removed := 0
	batch := make([]string, 0, purgeBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}

	iter := r.client.Scan(ctx, 0, r.settings.Prefix+"*", purgeBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func encodeReport(report *validator.Report) (map[string]interface{}, error) {
	states, err := json.Marshal(report.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode field states: %w", err)
	}
	return map[string]interface{}{
		fieldID:        report.ID.String(),
		fieldKind:      report.Kind,
		fieldCore:      report.Core.String(),
		fieldStates:    string(states),
		fieldCreatedAt: report.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decodeReport(values map[string]string) (*validator.Report, error) {
	id, err := uuid.Parse(values[fieldID])
	if err != nil {
		return nil, fmt.Errorf("bad report id: %w", err)
	}
	core, err := state.Parse(values[fieldCore])
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, values[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("bad creation time: %w", err)
	}

	var fields map[string]state.MetadataState
	if err := json.Unmarshal([]byte(values[fieldStates]), &fields); err != nil {
		return nil, fmt.Errorf("bad field states: %w", err)
	}

	return &validator.Report{
		ID:        id,
		Kind:      values[fieldKind],
		Core:      core,
		Fields:    fields,
		CreatedAt: createdAt,
	}, nil
}
