package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

// zapAdapter routes watermill logs through the service logger.
type zapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter wraps a zap logger as a watermill.LoggerAdapter.
func NewZapAdapter(logger *zap.Logger) watermill.LoggerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapAdapter{logger: logger}
}

func (a *zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(toZap(fields), zap.Error(err))...)
}

func (a *zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, toZap(fields)...)
}

func (a *zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, toZap(fields)...)
}

// Trace is folded into debug; zap has no trace level.
func (a *zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, toZap(fields)...)
}

func (a *zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapAdapter{logger: a.logger.With(toZap(fields)...)}
}

func toZap(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
