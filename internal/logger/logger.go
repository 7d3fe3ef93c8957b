package logger

import (
    "go.uber.org/zap"
)

// New builds a JSON production logger. An unknown level falls back to info.
func New(level string) *zap.Logger {
    cfg := zap.NewProductionConfig()
    if level != "" {
        if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
            cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
        }
    }
    log, err := cfg.Build()
    if err != nil {
        return zap.NewNop()
    }
    return log
}
