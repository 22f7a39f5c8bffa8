package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the logging part of the configuration.
type Log struct {
	Level  zapcore.Level `envconfig:"LOG_LEVEL" default:"warn"`
	Format string        `envconfig:"LOG_FORMAT" default:"console"`
}

// NewLogger builds the process logger. Output goes to stderr so it never
// mixes with command output on stdout.
func NewLogger(cfg Log, service string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(cfg.Level))
	return zap.New(core, zap.AddCaller()).Named(service)
}
