package obs

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerOnce sync.Once
	logger     *zap.Logger
)

// LogConfig controls the shared logger. Env "prod" selects JSON output,
// anything else the development console encoder.
type LogConfig struct {
	Env   string
	Level string
}

// InitLogger builds the process-wide logger. Only the first call has effect.
func InitLogger(cfg LogConfig) {
	loggerOnce.Do(func() {
		logger = buildLogger(cfg)
	})
}

// Logger returns the shared structured logger used across the service.
// If InitLogger was never called a development logger is created.
func Logger() *zap.Logger {
	if logger == nil {
		InitLogger(LogConfig{Env: "dev", Level: "info"})
	}
	return logger
}

// Named returns the shared logger tagged with a component name.
func Named(name string) *zap.Logger {
	return Logger().Named(name)
}

// SyncLogger flushes buffered log entries. Call via defer in main.
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

func buildLogger(cfg LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.TrimSpace(cfg.Level)); err == nil {
		level = parsed
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Env, "prod") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
