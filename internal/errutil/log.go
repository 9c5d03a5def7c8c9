package errutil

import (
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// LogError logs err with its oops code and context when present. extra
// fields are logged first.
func LogError(logger *zap.Logger, msg string, err error, extra ...zap.Field) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, append(extra, zap.Error(err))...)
		return
	}
	fields := append(extra, zap.String("error", oopsErr.Error()))
	if code := oopsErr.Code(); code != nil {
		fields = append(fields, zap.Any("code", code))
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		fields = append(fields, zap.Any("context", ctx))
	}
	logger.Error(msg, fields...)
}
