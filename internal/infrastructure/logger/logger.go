// Package logger builds the zap loggers of the service and carries request
// scoped logging through contexts, Gin and GORM.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ISO8601Millis is the default timestamp layout
const ISO8601Millis = "2006-01-02T15:04:05.000Z07:00"

// Config selects level, encoding and destination
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

// New builds a logger from cfg; nil means info level console output on
// stdout. Callers and stack traces on errors are always recorded.
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = &Config{Level: "info", Format: "console"}
	}
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(encoderFor(cfg), sink, parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	switch l := strings.ToLower(level); l {
	case "warning":
		return zapcore.WarnLevel
	default:
		if err := lvl.UnmarshalText([]byte(l)); err != nil {
			return zapcore.InfoLevel
		}
		return lvl
	}
}

func encoderFor(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = ISO8601Millis
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	ec.FunctionKey = zapcore.OmitKey

	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// Sync flushes buffered entries. Sync errors on terminals are expected and dropped.
func Sync(l *zap.Logger) {
	_ = l.Sync()
}
