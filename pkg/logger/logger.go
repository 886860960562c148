package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
)

// NewLogger 根据配置初始化 Zap 日志实例
//
// format 为 console 时使用开发模式彩色输出，其余一律 JSON。
// 日志统一写入 stderr，CLI 的 stdout 只用于结果输出。
func NewLogger(cfg *config.LogConfig, component string) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json", "":
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("无效的日志格式 %q", cfg.Format)
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	if component != "" {
		logger = logger.With(zap.String("component", component))
	}
	return logger, nil
}
