package gamedb

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger
type Logger interface {
	Debug(ctx context.Context, msg string, tags map[string]any)
	Info(ctx context.Context, msg string, tags map[string]any)
	Warn(ctx context.Context, msg string, tags map[string]any)
	Error(ctx context.Context, msg string, err error, tags map[string]any)
}

type logTagsKey struct{}

// WithLogTags returns a context whose tags are added to every log line written with it
func WithLogTags(ctx context.Context, tags map[string]any) context.Context {
	merged := map[string]any{}
	if existing, ok := ctx.Value(logTagsKey{}).(map[string]any); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range tags {
		merged[k] = v
	}
	return context.WithValue(ctx, logTagsKey{}, merged)
}

type defaultLogger struct {
	logger *zap.Logger
}

// NewLogger returns a structured json logger with the given level and default fields
func NewLogger(level string, defaultFields map[string]any) (Logger, error) {
	cfg := zap.NewProductionConfig()
	var opts = []zap.Option{
		zap.WithCaller(true),
		zap.AddCallerSkip(1),
	}
	for k, v := range defaultFields {
		opts = append(opts, zap.Fields(zap.Any(k, v)))
	}
	cfg.Level = zap.NewAtomicLevelAt(getLevel(level))
	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	return &defaultLogger{logger: logger}, nil
}

// NopLogger returns a logger that discards everything
func NopLogger() Logger {
	return &defaultLogger{logger: zap.NewNop()}
}

func getTags(ctx context.Context, tags map[string]any) []zap.Field {
	var fields []zap.Field
	if ctx != nil {
		if ctxTags, ok := ctx.Value(logTagsKey{}).(map[string]any); ok {
			for k, v := range ctxTags {
				if _, ok := tags[k]; ok {
					continue
				}
				fields = append(fields, zap.Any(k, v))
			}
		}
	}
	for k, v := range tags {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

func (d defaultLogger) Error(ctx context.Context, msg string, err error, tags map[string]any) {
	d.logger.Error(msg, append(getTags(ctx, tags), zap.Error(err))...)
}

func (d defaultLogger) Info(ctx context.Context, msg string, tags map[string]any) {
	d.logger.Info(msg, getTags(ctx, tags)...)
}

func (d defaultLogger) Debug(ctx context.Context, msg string, tags map[string]any) {
	d.logger.Debug(msg, getTags(ctx, tags)...)
}

func (d defaultLogger) Warn(ctx context.Context, msg string, tags map[string]any) {
	d.logger.Warn(msg, getTags(ctx, tags)...)
}

func getLevel(level string) zapcore.Level {
	levelMap := map[string]zapcore.Level{
		"error":   zap.ErrorLevel,
		"warn":    zap.WarnLevel,
		"warning": zap.WarnLevel,
		"info":    zap.InfoLevel,
		"debug":   zap.DebugLevel,
	}
	l, ok := levelMap[strings.ToLower(level)]
	if !ok {
		return zap.InfoLevel
	}
	return l
}
