package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.Logger to the Logger interface, redacting
// sensitive keyvals before they reach the sugared logger.
type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger wraps base. A nil base is treated as zap.NewNop().
func NewZapLogger(base *zap.Logger) Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ZapLogger{log: base.Sugar()}
}

func (l *ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	l.log.Debugw(msg, Sanitize(keyvals)...)
}

func (l *ZapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	l.log.Infow(msg, Sanitize(keyvals)...)
}

func (l *ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	l.log.Warnw(msg, Sanitize(keyvals)...)
}

func (l *ZapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	l.log.Errorw(msg, Sanitize(keyvals)...)
}
