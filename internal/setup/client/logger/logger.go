// Package logger bridges zap to the logging interface the HTTP client
// middleware chain expects.
package logger

import (
	"github.com/jaxron/axonet/pkg/client/logger"
	"go.uber.org/zap"
)

// Adapter exposes a zap.Logger through the axonet logger.Logger interface.
type Adapter struct {
	log *zap.Logger
}

// New wraps a zap logger for use as the HTTP client's logger.
func New(log *zap.Logger) logger.Logger {
	return &Adapter{log: log.Named("http")}
}

func (a *Adapter) Debug(msg string) { a.log.Debug(msg) }
func (a *Adapter) Info(msg string)  { a.log.Info(msg) }
func (a *Adapter) Warn(msg string)  { a.log.Warn(msg) }
func (a *Adapter) Error(msg string) { a.log.Error(msg) }

func (a *Adapter) Debugf(format string, args ...any) { a.log.Sugar().Debugf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.log.Sugar().Infof(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.log.Sugar().Warnf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.log.Sugar().Errorf(format, args...) }

// WithFields returns a logger that carries the given fields on every entry.
func (a *Adapter) WithFields(fields ...logger.Field) logger.Logger {
	converted := make([]zap.Field, len(fields))
	for i, field := range fields {
		converted[i] = zap.Any(field.Key, field.Value)
	}
	return &Adapter{log: a.log.With(converted...)}
}
