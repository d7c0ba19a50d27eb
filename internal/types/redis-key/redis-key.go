package rediskey

import (
	"strconv"

	"merchant-order-api/internal/config"
)

// MerchantKey 商户缓存 key，project 前缀在调用时读取，避免 init 阶段配置未加载
func MerchantKey(id uint64) string {
	return config.C.Project.Name + ":merchant:" + strconv.FormatUint(id, 10)
}
