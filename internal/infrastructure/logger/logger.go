package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pizzeria/internal/config"
)

const serviceName = "pizzeria"

// New builds the process logger. Format "console" gives coloured
// human-readable output for local runs; anything else is JSON.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.InitialFields = map[string]interface{}{"service": serviceName}
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = lvl > zapcore.DebugLevel

	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
