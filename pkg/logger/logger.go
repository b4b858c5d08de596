package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger = zap.NewNop()
	once   sync.Once
)

// Init 初始化全局 logger（dev 环境输出彩色控制台日志）
func Init(env string) error {
	var err error
	once.Do(func() {
		var l *zap.Logger
		if env == "prod" {
			l, err = zap.NewProduction()
		} else {
			cfg := zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			l, err = cfg.Build()
		}
		if err != nil {
			return
		}
		global = l
		zap.ReplaceGlobals(l)
	})
	return err
}

// L 返回全局 logger
func L() *zap.Logger { return global }

func Debug(msg string, fields ...zap.Field) { global.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { global.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { global.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { global.Error(msg, fields...) }

// Sync 刷新缓冲日志，进程退出前调用
func Sync() { _ = global.Sync() }
