package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

var (
	// Info 请求与业务日志
	Info = logrus.New()
	// Error 异常日志
	Error = logrus.New()
)

// Init 将日志切换到按天滚动的文件
func Init(baseDir string) {
	Info = NewLogger(baseDir, "info")
	Error = NewLogger(baseDir, "error")
}

func NewLogger(baseDir, logType string) *logrus.Logger {
	log := logrus.New()
	logPath := filepath.Join(baseDir, logType)
	_ = os.MkdirAll(logPath, 0755)

	writer, err := rotatelogs.New(
		logPath+"/"+logType+".log.%Y-%m-%d",
		rotatelogs.WithLinkName(logPath+"/"+logType+".log"),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		log.Warnf("rotatelogs init failed, fallback to stdout: %v", err)
	} else {
		log.SetOutput(writer)
	}
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			// 自定义显示格式：函数名 + 文件路径
			funcName := f.Function
			fileLine := fmt.Sprintf("%s:%d", f.File, f.Line)
			return funcName, fileLine
		},
	})
	log.SetLevel(logrus.InfoLevel)

	return log
}
