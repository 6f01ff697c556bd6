package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is an interface for logging
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// ZapLogger is a concrete implementation using zap's sugared logger
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewLogger creates a new logger instance
func NewLogger(env string) Logger {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewNop()
	}

	return &ZapLogger{
		logger: base.Sugar(),
	}
}

// NewNop returns a logger that discards everything, for tests
func NewNop() Logger {
	return &ZapLogger{logger: zap.NewNop().Sugar()}
}

func (l *ZapLogger) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

func (l *ZapLogger) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}

func (l *ZapLogger) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

func (l *ZapLogger) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}
