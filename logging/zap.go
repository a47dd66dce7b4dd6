package logging

import (
	"go.uber.org/zap"

	"obtree"
)

// Zap wraps a zap.Logger to implement obtree.Logger. The engine logs on
// root height changes and on every merge a removal forces, so this holds
// a SugaredLogger built once at construction rather than deriving one from
// the base logger on every call.
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap creates an obtree.Logger from a zap.Logger.
func NewZap(logger *zap.Logger) obtree.Logger {
	return &Zap{sugar: logger.Sugar()}
}

// Error logs an error message with key-value pairs.
func (z *Zap) Error(msg string, args ...any) {
	z.sugar.Errorw(msg, args...)
}

// Warn logs a warning message with key-value pairs.
func (z *Zap) Warn(msg string, args ...any) {
	z.sugar.Warnw(msg, args...)
}

// Info logs an info message with key-value pairs.
func (z *Zap) Info(msg string, args ...any) {
	z.sugar.Infow(msg, args...)
}
