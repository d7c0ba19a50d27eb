package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger 访问日志，4xx/5xx 及 c.Errors 写 error 日志
func RequestLogger(infoLog, errorLog *logrus.Logger) gin.HandlerFunc {
	if infoLog == nil {
		infoLog = logrus.StandardLogger()
	}
	if errorLog == nil {
		errorLog = infoLog
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		entry := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"latency":    latency.String(),
			"user-agent": c.Request.UserAgent(),
			"trace_id":   c.Writer.Header().Get(TraceHeader),
		}

		switch {
		case len(c.Errors) > 0:
			errorLog.WithFields(entry).Error(c.Errors.String())
		case c.Writer.Status() >= 500:
			errorLog.WithFields(entry).Error("request failed")
		default:
			infoLog.WithFields(entry).Info("request completed")
		}
	}
}
