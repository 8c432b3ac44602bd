package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pu-ac-cn/admin-console/internal/config"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init 初始化 Redis 连接
func Init(cfg *config.RedisConfig) error {
	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("连接 Redis 失败: %w", err)
	}

	return nil
}

// GetClient 获取 Redis 客户端实例
func GetClient() *redis.Client {
	return client
}

// Ping 测试 Redis 连接
func Ping(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("Redis 未初始化")
	}
	return client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}
