package logger

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局日志实例，未初始化时为 Nop
var Log = zap.NewNop()

// Init 根据运行环境初始化日志
func Init(env string) error {
	l, err := New(env)
	if err != nil {
		return err
	}
	Log = l
	zap.ReplaceGlobals(l)
	return nil
}

// New 创建 logger, production 输出 JSON，其余环境输出彩色控制台格式
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// Sync 刷新缓冲区，进程退出前调用
// stdout/stderr 在部分平台上不支持 fsync，忽略该类错误
func Sync() {
	err := Log.Sync()
	var pathErr *os.PathError
	if err != nil && !errors.As(err, &pathErr) {
		fmt.Fprintf(os.Stderr, "logger sync: %v\n", err)
	}
}
