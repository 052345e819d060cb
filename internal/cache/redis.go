package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freightbid/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "fb"
	pingTimeout   = 3 * time.Second
)

var (
	redisClient *redis.Client
	redisPrefix = defaultPrefix
)

// InitRedis 连接 Redis 并探活，不可达时保持禁用，事件只在本实例内推送
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		Reset()
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		Reset()
		return fmt.Errorf("redis ping %s failed: %w", client.Options().Addr, err)
	}
	use(client, cfg.Prefix)
	return nil
}

// use 挂载已探活的客户端
func use(client *redis.Client, prefix string) {
	redisClient = client
	redisPrefix = strings.TrimSpace(prefix)
	if redisPrefix == "" {
		redisPrefix = defaultPrefix
	}
}

// Reset 关闭并卸载客户端
func Reset() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
	redisClient = nil
	redisPrefix = defaultPrefix
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return redisClient != nil
}

// Client 获取 Redis 客户端，未启用时返回 nil
func Client() *redis.Client {
	return redisClient
}

// Ping 健康检查使用，未启用时返回 nil
func Ping(ctx context.Context) error {
	if !Enabled() {
		return nil
	}
	return redisClient.Ping(ctx).Err()
}

// GetJSON 读取 JSON 缓存，未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	val, err := redisClient.Get(ctx, BuildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redisClient.Set(ctx, BuildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	if !Enabled() {
		return nil
	}
	return redisClient.Del(ctx, BuildKey(key)).Err()
}

// BuildKey 拼接带前缀的键，例如 fb:carrier:profile:3
func BuildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return redisPrefix
	}
	return redisPrefix + ":" + trimmed
}
