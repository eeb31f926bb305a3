package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var rdb *redis.Client

// RedisOptions REDIS_URL 支持 host:port 或 redis://[user:pass@]host:port/db；
// URL 中未给出密码和库号时使用单独配置的值
func RedisOptions(url, password string, db int) (*redis.Options, error) {
	if !strings.Contains(url, "://") {
		return &redis.Options{Addr: url, Password: password, DB: db}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.Password == "" {
		opts.Password = password
	}
	if opts.DB == 0 {
		opts.DB = db
	}
	return opts, nil
}

// NewRedisClient 创建客户端并在超时内完成 PING
func NewRedisClient(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// InitRedis 初始化全局 Redis 连接
func InitRedis(url, password string, db int) error {
	opts, err := RedisOptions(url, password, db)
	if err != nil {
		return err
	}

	client, err := NewRedisClient(context.Background(), opts)
	if err != nil {
		return err
	}
	rdb = client

	Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return nil
}

// GetRedis 获取 Redis 客户端
func GetRedis() *redis.Client {
	return rdb
}

// CloseRedis 关闭 Redis 连接
func CloseRedis() error {
	if rdb != nil {
		return rdb.Close()
	}
	return nil
}
