// Package redis provides a Redis implementation of the SenderCache port.
//
// Transaction-hash → sender mappings are immutable chain data, so entries
// carry a long TTL and survive across runs; a re-scan of the same range
// hits the cache instead of the RPC transport.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Compile-time check that SenderCache implements outbound.SenderCache
var _ outbound.SenderCache = (*SenderCache)(nil)

// Config holds Redis cache configuration.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number
	DB int
	// TTL is how long cached senders live before expiring
	TTL time.Duration
	// KeyPrefix is prepended to all cache keys
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for the sender cache.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		TTL:       7 * 24 * time.Hour,
		KeyPrefix: "beradrop",
	}
}

// SenderCache is a Redis implementation of the outbound.SenderCache port.
type SenderCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewSenderCache creates a new Redis sender cache.
func NewSenderCache(cfg Config, logger *slog.Logger) (*SenderCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	defaults := ConfigDefaults()
	if cfg.TTL == 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &SenderCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With("component", "redis-sender-cache"),
	}, nil
}

// Ping checks the Redis connection.
func (c *SenderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *SenderCache) Close() error {
	return c.client.Close()
}

// Get returns the cached sender for txHash. A missing key is a cache
// miss, not an error.
func (c *SenderCache) Get(ctx context.Context, txHash common.Hash) (common.Address, bool, error) {
	raw, err := c.client.Get(ctx, c.key(txHash)).Result()
	if errors.Is(err, redis.Nil) {
		return common.Address{}, false, nil
	}
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to read sender from redis: %w", err)
	}
	if !common.IsHexAddress(raw) {
		c.logger.Warn("discarding malformed cache entry", "tx", txHash.Hex(), "value", raw)
		return common.Address{}, false, nil
	}
	return common.HexToAddress(raw), true, nil
}

// Set stores the sender for txHash with the configured TTL.
func (c *SenderCache) Set(ctx context.Context, txHash common.Hash, sender common.Address) error {
	if err := c.client.Set(ctx, c.key(txHash), sender.Hex(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write sender to redis: %w", err)
	}
	return nil
}

func (c *SenderCache) key(txHash common.Hash) string {
	return fmt.Sprintf("%s:sender:%s", c.keyPrefix, txHash.Hex())
}
