package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// 反向代理透传客户端地址的 header，按优先级排列
var clientIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// GetRealClientIP 客户端地址，仅用于审计日志
func GetRealClientIP(c *gin.Context) string {
	for _, h := range clientIPHeaders {
		if ip := FirstValidIP(c.GetHeader(h)); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

// FirstValidIP 逗号分隔列表中第一个合法 IP
func FirstValidIP(list string) string {
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part != "" && net.ParseIP(part) != nil {
			return part
		}
	}
	return ""
}
