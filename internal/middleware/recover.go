package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"merchant-order-api/internal/constant"
	"merchant-order-api/internal/utils"
)

// Recover panic 转为 500 envelope
func Recover(log *logrus.Logger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"path":     c.Request.URL.Path,
					"trace_id": c.Writer.Header().Get(TraceHeader),
				}).Errorf("panic recovered: %v\n%s", r, debug.Stack())
				utils.Fail(c, constant.NewInternal(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
