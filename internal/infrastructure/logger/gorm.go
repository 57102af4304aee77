package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowSQL is the threshold above which GormLogger warns about a statement
const DefaultSlowSQL = 200 * time.Millisecond

// GormLogger sends GORM output to zap under the "gorm" name, with the
// request and trace fields of the statement context. Missing records are
// an expected outcome for the document store and are never logged.
type GormLogger struct {
	logger *zap.Logger
	level  gormlogger.LogLevel
	// SlowThreshold of zero disables slow statement warnings
	SlowThreshold time.Duration
}

// NewGormLogger creates a GormLogger at level
func NewGormLogger(l *zap.Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{logger: l.Named("gorm"), level: level, SlowThreshold: DefaultSlowSQL}
}

// LogMode implements gormlogger.Interface
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) logf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if g.level < min {
		return
	}
	if ce := For(ctx, g.logger).Check(lvl, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write()
	}
}

// Info implements gormlogger.Interface
func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	g.logf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn implements gormlogger.Interface
func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	g.logf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error implements gormlogger.Interface
func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	g.logf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace implements gormlogger.Interface. Failed statements log at error,
// slow ones at warn and the rest at debug when the level is Info.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := g.SlowThreshold > 0 && elapsed > g.SlowThreshold

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && g.level >= gormlogger.Error:
		lvl, msg = zapcore.ErrorLevel, "SQL Error"
	case err == nil && slow && g.level >= gormlogger.Warn:
		lvl, msg = zapcore.WarnLevel, "Slow SQL"
	case err == nil && g.level >= gormlogger.Info:
		lvl, msg = zapcore.DebugLevel, "SQL Query"
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := For(ctx, g.logger).Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

// MapGormLogLevel maps a configured level name to the GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
