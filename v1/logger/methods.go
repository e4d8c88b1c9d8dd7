package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func (l *LoggerClient) Debug(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zap.DebugLevel, msg, err, fields)
}

func (l *LoggerClient) Info(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zap.InfoLevel, msg, err, fields)
}

func (l *LoggerClient) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zap.WarnLevel, msg, err, fields)
}

func (l *LoggerClient) Error(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zap.ErrorLevel, msg, err, fields)
}

// Fatal logs at fatal level and exits the process.
func (l *LoggerClient) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.log(context.Background(), zap.FatalLevel, msg, err, fields)
}

func (l *LoggerClient) DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zap.DebugLevel, msg, err, fields)
}

func (l *LoggerClient) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zap.InfoLevel, msg, err, fields)
}

func (l *LoggerClient) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zap.WarnLevel, msg, err, fields)
}

func (l *LoggerClient) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.log(ctx, zap.ErrorLevel, msg, err, fields)
}

func (l *LoggerClient) log(ctx context.Context, level zapcore.Level, msg string, err error, fields []map[string]interface{}) {
	ce := l.Zap.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(l.zapFields(ctx, err, fields)...)
}

// zapFields flattens the field maps and appends the span of ctx.
func (l *LoggerClient) zapFields(ctx context.Context, err error, fields []map[string]interface{}) []zap.Field {
	n := 0
	for _, m := range fields {
		n += len(m)
	}
	out := make([]zap.Field, 0, n+3)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for _, m := range fields {
		for k, v := range m {
			out = append(out, zap.Any(k, v))
		}
	}
	if l.tracingEnabled {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			out = append(out,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return out
}
