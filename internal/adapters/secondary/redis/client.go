// Package redis holds the Redis-backed adapters: the per-ticket assignment lock.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lorrc/service-desk-sla/internal/config"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// Client wraps the go-redis client.
type Client struct {
	rdb *goredis.Client
}

var _ ports.HealthChecker = (*Client)(nil)

// NewClient connects to Redis. An unreachable server is logged, not fatal:
// lock acquisition fails until it comes back and /health/ready reports it.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *Client {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis", "addr", cfg.Addr, "error", err)
	} else {
		logger.Info("connected to redis", "addr", cfg.Addr)
	}

	return &Client{rdb: rdb}
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Client) Close() error {
	return c.rdb.Close()
}
