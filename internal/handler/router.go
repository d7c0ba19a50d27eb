package handler

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"merchant-order-api/internal/logger"
	"merchant-order-api/internal/middleware"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Orders   OrderService
	Audit    logger.AuditWriter
	Checks   map[string]Pinger
	InfoLog  *logrus.Logger
	ErrorLog *logrus.Logger
}

// NewRouter 注册全部路由
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recover(d.ErrorLog), middleware.RequestLogger(d.InfoLog, d.ErrorLog))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", Health(d.Checks))

	h := NewOrderHandler(d.Orders)
	signed := func(op string, fn gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{middleware.TraceAudit(d.Audit, op), middleware.SignedPayload(), fn}
	}
	v1 := r.Group("/api/v1")
	{
		v1.POST("/orders", signed("submit", h.Submit)...)
		v1.GET("/orders/:id", signed("fetch", h.Fetch)...)
		v1.POST("/orders/:id/complete", signed("complete", h.Complete)...)
		v1.DELETE("/orders/:id", signed("remove", h.Remove)...)
	}
	return r
}
