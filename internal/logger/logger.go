package logger

import (
    "strings"

    "go.uber.org/zap"
)

// Logger is a thin sugared-zap wrapper shared across the worker.
type Logger struct {
    s *zap.SugaredLogger
}

func New(mode string) (*Logger, error) {
    var cfg zap.Config
    switch strings.ToLower(mode) {
    case "prod", "production":
        cfg = zap.NewProductionConfig()
    default:
        cfg = zap.NewDevelopmentConfig()
    }
    zl, err := cfg.Build()
    if err != nil {
        return nil, err
    }
    return &Logger{s: zl.Sugar()}, nil
}

// Nop returns a logger that discards everything; used in tests.
func Nop() *Logger {
    return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() { _ = l.s.Sync() }

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.s.Debugw(msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.s.Infow(msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.s.Warnw(msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.s.Errorw(msg, keysAndValues...) }

func (l *Logger) With(keysAndValues ...any) *Logger {
    return &Logger{s: l.s.With(keysAndValues...)}
}
