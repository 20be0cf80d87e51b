package cache

import (
	"context"
	"log/slog"
	"time"

	"lounge-booking/internal/pkg/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when Redis is disabled or unreachable; callers then read
// straight from the store.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unreachable, availability cache disabled",
			slog.String("addr", cfg.Addr),
			slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	return client
}
