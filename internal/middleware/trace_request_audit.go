package middleware

import (
	"bytes"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"merchant-order-api/internal/dto"
	"merchant-order-api/internal/logger"
	"merchant-order-api/internal/utils"
)

const (
	TraceHeader = "X-Trace-ID"
	auditCtxKey = "audit_ctx"
	// 审计日志中请求/响应体截断长度
	maxAuditBody = 8 << 10
)

// bodyWriter 复制一份响应体用于审计
type bodyWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w bodyWriter) Write(b []byte) (int, error) {
	if w.buf.Len() < maxAuditBody {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// TraceAudit 生成 trace id 并在请求结束后写审计日志，operation 为业务操作名
func TraceAudit(writer logger.AuditWriter, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		audit := &dto.AuditContextPayload{
			StartTime:   time.Now(),
			TraceID:     traceID,
			Operation:   operation,
			RequestBody: truncate(requestSnapshot(c, bodyBytes)),
			IP:          utils.GetRealClientIP(c),
			UserAgent:   c.GetHeader("User-Agent"),
		}
		c.Set(auditCtxKey, audit)
		c.Request = c.Request.WithContext(dto.WithAudit(c.Request.Context(), audit))
		c.Writer.Header().Set(TraceHeader, traceID)

		bw := bodyWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = bw

		c.Next()

		audit.ResponseBody = truncate(bw.buf.String())
		audit.Status = c.Writer.Status()
		if len(c.Errors) > 0 {
			audit.ErrorMsg = c.Errors.String()
		}
		audit.LatencyMs = time.Since(audit.StartTime).Milliseconds()
		if writer != nil {
			writer.Write(audit)
		}
	}
}

// AuditFromGin handler 中取审计上下文
func AuditFromGin(c *gin.Context) *dto.AuditContextPayload {
	if v, ok := c.Get(auditCtxKey); ok {
		if a, ok := v.(*dto.AuditContextPayload); ok {
			return a
		}
	}
	return dto.AuditFrom(c.Request.Context())
}

func requestSnapshot(c *gin.Context, body []byte) string {
	if q := c.Request.URL.RawQuery; q != "" {
		if len(body) == 0 {
			return q
		}
		return q + "\n" + string(body)
	}
	return string(body)
}

func truncate(s string) string {
	if len(s) > maxAuditBody {
		return s[:maxAuditBody]
	}
	return s
}
