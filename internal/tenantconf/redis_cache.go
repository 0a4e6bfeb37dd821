package tenantconf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/crm-dispatch-go/internal/models"
)

// CachedStore is a read-through cache over another Store. Configuration rows
// change rarely relative to dispatch volume, so a short TTL keeps the
// postgres lookup off the hot path while a stale read at worst means the
// next dispatch uses updated values.
type CachedStore struct {
	inner  Store
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedStore wraps inner with a redis cache.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) (*CachedStore, error) {
	if inner == nil {
		return nil, errors.New("tenantconf: inner store is required")
	}
	if rdb == nil {
		return nil, errors.New("tenantconf: redis client is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, logger: logger}, nil
}

// Get serves from redis when possible and falls back to the inner store.
// Only present rows are cached; absence always consults the inner store so a
// tenant finishing setup is picked up immediately. Cache failures degrade to
// the inner store rather than failing the lookup.
func (s *CachedStore) Get(ctx context.Context, tenantID, service string) (*models.ServiceConfig, error) {
	key := cacheKey(tenantID, service)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cfg models.ServiceConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return &cfg, nil
		}
		s.logger.Warn().Str("key", key).Msg("dropping undecodable cached service config")
		_ = s.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Str("key", key).Msg("service config cache read failed")
	}

	cfg, err := s.inner.Get(ctx, tenantID, service)
	if err != nil || cfg == nil {
		return cfg, err
	}

	if b, err := json.Marshal(cfg); err == nil {
		if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("service config cache write failed")
		}
	}
	return cfg, nil
}

func cacheKey(tenantID, service string) string {
	return fmt.Sprintf("svccfg:%s:%s", tenantID, service)
}
