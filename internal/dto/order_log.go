package dto

import (
	"context"
	"time"
)

// AuditContextPayload 单次请求的审计上下文
type AuditContextPayload struct {
	StartTime    time.Time
	TraceID      string
	Operation    string
	OrderID      uint64
	MerchantID   uint64
	TradeNo      string
	RequestBody  string
	ResponseBody string
	Status       int
	VerifyCause  string
	ErrorMsg     string
	IP           string
	UserAgent    string
	LatencyMs    int64
}

type auditCtxKey struct{}

// WithAudit 将审计上下文挂到 context 上，service 层补充订单与验签信息
func WithAudit(ctx context.Context, a *AuditContextPayload) context.Context {
	return context.WithValue(ctx, auditCtxKey{}, a)
}

// AuditFrom 取审计上下文，不存在时返回一个丢弃用的空对象
func AuditFrom(ctx context.Context) *AuditContextPayload {
	if a, ok := ctx.Value(auditCtxKey{}).(*AuditContextPayload); ok && a != nil {
		return a
	}
	return &AuditContextPayload{}
}
