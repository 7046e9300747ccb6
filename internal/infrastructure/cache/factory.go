package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Coordination bundles the locker and idempotency store the process uses.
// Close releases the Redis client when one was opened.
type Coordination struct {
	Locker      shared.Locker
	Idempotency shared.IdempotencyStore
	Redis       *redis.Client
}

// Close releases the idempotency store and the Redis connection
func (c *Coordination) Close() error {
	if err := c.Idempotency.Close(); err != nil {
		return err
	}
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// Factory creates coordination primitives based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	lockTTL               time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory
// primitives when Redis is unreachable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithLockTTL sets how long a Redis lock outlives a crashed holder
func WithLockTTL(ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		f.lockTTL = ttl
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		lockTTL:               30 * time.Second,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRedisClient opens a client and verifies it with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// InMemory returns process-local primitives. Suitable for single-instance
// deployments and tests; replicas will not see each other's locks.
func (f *Factory) InMemory() *Coordination {
	return &Coordination{
		Locker:      NewMemoryLocker(),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}

// Create returns Redis-backed primitives when Redis is enabled and
// reachable, falling back to in-memory ones if allowed.
func (f *Factory) Create(ctx context.Context) (*Coordination, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory locks and idempotency store")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for coordination but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory locks and idempotency store. "+
			"Concurrent checkouts on different replicas will not be serialized.",
			zap.Error(err),
		)
		return f.InMemory(), nil
	}

	f.logger.Info("using Redis locks and idempotency store", zap.String("addr", f.redisConfig.Addr()))
	return &Coordination{
		Locker:      NewRedisLocker(client, f.lockTTL, f.logger),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Redis:       client,
	}, nil
}
