package dal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"merchant-order-api/internal/config"
)

// RedisClient 商户缓存使用
var RedisClient *redis.Client

// InitRedis 连接失败直接退出
func InitRedis() {
	rdb, err := NewRedis(config.C.Redis)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}
	RedisClient = rdb
	log.Printf("[Redis] connected → %s db=%d", config.C.Redis.Addr, config.C.Redis.DB)
}

// NewRedis 创建客户端并 ping 一次
func NewRedis(c config.RedisCfg) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping %s: %w", c.Addr, err)
	}
	return rdb, nil
}
