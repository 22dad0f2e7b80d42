package setup

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/pkg/logger"
)

// InitRedis 初始化 Redis 连接
func InitRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	logger.Info("Connected to Redis successfully!")
	return client, nil
}
