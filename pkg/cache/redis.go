package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/academic-engine/pkg/config"
)

// NewRedis returns a configured Redis client after a successful ping.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// Pinger adapts a Redis client to the readiness check.
type Pinger struct {
	Client *redis.Client
}

// PingContext issues PING.
func (p Pinger) PingContext(ctx context.Context) error {
	if p.Client == nil {
		return fmt.Errorf("redis disabled")
	}
	return p.Client.Ping(ctx).Err()
}
