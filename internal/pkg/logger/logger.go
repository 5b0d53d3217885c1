package logger

import (
	"context"

	"go.uber.org/zap"
)

var global *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	global = l.Sugar()
}

// ctx is accepted everywhere so request-scoped loggers can be plugged in
// later without touching call sites.

func Debugf(_ context.Context, format string, args ...interface{}) {
	global.Debugf(format, args...)
}

func Info(_ context.Context, args ...interface{}) {
	global.Info(args...)
}

func Infof(_ context.Context, format string, args ...interface{}) {
	global.Infof(format, args...)
}

func Warnf(_ context.Context, format string, args ...interface{}) {
	global.Warnf(format, args...)
}

func Error(_ context.Context, args ...interface{}) {
	global.Error(args...)
}

func Errorf(_ context.Context, format string, args ...interface{}) {
	global.Errorf(format, args...)
}

func Fatal(_ context.Context, args ...interface{}) {
	global.Fatal(args...)
}
