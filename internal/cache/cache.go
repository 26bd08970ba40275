// Package cache implements the cache-aside protocol in front of the config
// store. The cache is only an accelerator: it is never authoritative, every
// entry is re-derivable from the database, and any Redis failure degrades to
// a miss rather than an error for the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stackmed/formconfig/backend/internal/config"
	"github.com/stackmed/formconfig/backend/internal/models"
	"github.com/stackmed/formconfig/backend/pkg/logger"
)

const keyNamespace = "ui_config"

// Key builds the cache key for a config document.
// Format: ui_config:<tenant_id>:<type>
func Key(tenantID string, configType models.ConfigType) string {
	return fmt.Sprintf("%s:%s:%s", keyNamespace, tenantID, configType)
}

// Manager owns the cache side of the coherency protocol: read-through
// lookup, write-through populate, invalidation on delete, and bulk flush.
type Manager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewManager connects to Redis when the cache is enabled. A failed initial
// ping does not abort startup: the client is kept and every operation simply
// degrades until Redis comes back.
func NewManager(cfg *config.CacheConfig) *Manager {
	m := &Manager{ttl: cfg.Expiry()}

	if !cfg.Enabled {
		logger.Infof("[Cache] disabled, all lookups fall through to store")
		return m
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("cache unreachable at startup, continuing degraded")
	} else {
		logger.Infof("[Cache] connected to Redis at %s, ttl=%s", cfg.Addr, m.ttl)
	}

	return m
}

// Enabled reports whether a Redis client is configured.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Lookup returns the cached config snapshot for the key, or (nil, false) on a
// miss. Redis errors and undecodable entries count as misses; the caller is
// expected to fall through to the store and Populate afterward.
func (m *Manager) Lookup(ctx context.Context, tenantID string, configType models.ConfigType) (*models.UIConfig, bool) {
	if m.client == nil {
		return nil, false
	}

	key := Key(tenantID, configType)
	data, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug().Err(err).Str("key", key).Msg("cache lookup failed, treating as miss")
		}
		return nil, false
	}

	var cfg models.UIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("undecodable cache entry, treating as miss")
		return nil, false
	}

	return &cfg, true
}

// Populate writes a config snapshot into the cache with the configured
// expiry, overwriting any existing entry. Failures are logged and swallowed;
// the store already holds the document.
func (m *Manager) Populate(ctx context.Context, cfg *models.UIConfig) {
	if m.client == nil || cfg == nil {
		return
	}

	key := Key(cfg.TenantID, cfg.ConfigType)
	data, err := json.Marshal(cfg)
	if err != nil {
		logger.Error().Err(err).Str("key", key).Msg("failed to serialize config for cache")
		return
	}

	if err := m.client.Set(ctx, key, data, m.ttl).Err(); err != nil {
		logger.Debug().Err(err).Str("key", key).Msg("cache populate failed")
	}
}

// Invalidate removes the single cache entry for the key. Used on delete;
// failures are swallowed because the entry expires on its own.
func (m *Manager) Invalidate(ctx context.Context, tenantID string, configType models.ConfigType) {
	if m.client == nil {
		return
	}

	key := Key(tenantID, configType)
	if err := m.client.Del(ctx, key).Err(); err != nil {
		logger.Debug().Err(err).Str("key", key).Msg("cache invalidate failed")
	}
}

// FlushAll removes every cache entry across all tenants and keys. This is an
// administrative escape hatch; the next read per key repopulates from the
// store.
func (m *Manager) FlushAll(ctx context.Context) {
	if m.client == nil {
		return
	}

	if err := m.client.FlushDB(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("cache flush failed")
		return
	}
	logger.Infof("[Cache] flushed all entries")
}

// Ping reports cache reachability for health checks.
func (m *Manager) Ping(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (m *Manager) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}
