package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DoWithRetry 执行带重试逻辑的函数，maxRetries 为总尝试次数
func DoWithRetry(ctx context.Context, maxRetries int, interval time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		logrus.Warnf("[RETRY] 第 %d/%d 次失败: %v", attempt, maxRetries, err)
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("上下文已取消或超时: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return err
}
