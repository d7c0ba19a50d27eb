package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	mainmodel "merchant-order-api/internal/model/main"
	rediskey "merchant-order-api/internal/types/redis-key"
)

// MerchantLoader 商户的回源读取，*dao.MainDao 实现
type MerchantLoader interface {
	GetMerchant(ctx context.Context, id uint64) (*mainmodel.Merchant, error)
}

// MerchantCache 商户读缓存：redis + singleflight 防击穿。
// 只缓存存在的商户，不存在不落缓存。
type MerchantCache struct {
	loader MerchantLoader
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	log    *logrus.Logger
}

// NewMerchantCache rdb 为 nil 时退化为 singleflight 直读
func NewMerchantCache(loader MerchantLoader, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *MerchantCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MerchantCache{loader: loader, rdb: rdb, ttl: ttl, log: log}
}

func (c *MerchantCache) GetMerchant(ctx context.Context, id uint64) (*mainmodel.Merchant, error) {
	key := rediskey.MerchantKey(id)

	v, err, _ := c.group.Do(strconv.FormatUint(id, 10), func() (interface{}, error) {
		if m := c.fromRedis(ctx, key); m != nil {
			return m, nil
		}
		m, err := c.loader.GetMerchant(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load merchant %d: %w", id, err)
		}
		if m != nil {
			c.toRedis(ctx, key, m)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	m, _ := v.(*mainmodel.Merchant)
	return m, nil
}

// Invalidate 商户资料变更后调用
func (c *MerchantCache) Invalidate(ctx context.Context, id uint64) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, rediskey.MerchantKey(id)).Err(); err != nil {
		c.log.WithError(err).Warnf("[MerchantCache] del %d failed", id)
	}
}

func (c *MerchantCache) fromRedis(ctx context.Context, key string) *mainmodel.Merchant {
	if c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warnf("[MerchantCache] get %s failed", key)
		}
		return nil
	}
	var m mainmodel.Merchant
	if err := json.Unmarshal(raw, &m); err != nil {
		c.log.WithError(err).Warnf("[MerchantCache] decode %s failed", key)
		return nil
	}
	return &m
}

func (c *MerchantCache) toRedis(ctx context.Context, key string, m *mainmodel.Merchant) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warnf("[MerchantCache] set %s failed", key)
	}
}
