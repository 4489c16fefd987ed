package observability

import "go.uber.org/zap"

// zapLogger adapts *zap.Logger to the Logger interface so the rest of the
// core never imports zap directly.
type zapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z as a Logger. Pass zap.NewProduction() or
// zap.NewDevelopment() depending on the embedding application's needs.
func NewZapLogger(z *zap.Logger) Logger {
	return zapLogger{z: z}
}

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, len(fields))
	for i, f := range fields {
		zf[i] = zap.Any(f.Key(), f.Value())
	}
	return zf
}

func (l zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }

func (l zapLogger) With(fields ...Field) Logger {
	return zapLogger{z: l.z.With(toZapFields(fields)...)}
}
