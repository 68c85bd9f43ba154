package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"opencalc/pkg/errors"
)

var global *Logger

// Logger wraps zap.SugaredLogger. When an error tracker is attached,
// error-level entries are mirrored to it so provider outages and refresh
// failures surface without a separate capture call at every site.
type Logger struct {
	*zap.SugaredLogger
	tracker errors.Tracker
}

// Init builds the global logger. Production gets JSON output; anything
// else gets the colored console encoder. An unknown level falls back to
// info rather than failing startup.
func Init(level string, env string) error {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	base, err := cfg.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return err
	}

	global = &Logger{SugaredLogger: base.Sugar()}
	return nil
}

// SetErrorTracker attaches the tracker to the global logger. Called once
// after Init; before that, errors are logged but not reported.
func SetErrorTracker(t errors.Tracker) {
	if global != nil {
		global.tracker = t
	}
}

// Get returns the global logger, building a development fallback if Init
// has not run yet (tests mostly).
func Get() *Logger {
	if global == nil {
		base, _ := zap.NewDevelopment()
		global = &Logger{SugaredLogger: base.Sugar()}
	}
	return global
}

// With returns a child logger carrying extra fields and the same tracker.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(args...),
		tracker:       l.tracker,
	}
}

func (l *Logger) capture(err error, tags map[string]string) {
	if l.tracker != nil {
		l.tracker.CaptureError(context.Background(), err, tags)
	}
}

// Error logs at error level and mirrors to the tracker.
func (l *Logger) Error(args ...interface{}) {
	l.SugaredLogger.Error(args...)
	l.capture(errors.Wrapf(errors.ErrInternal, "%v", args), map[string]string{"component": "logger"})
}

// Errorf logs a formatted error and mirrors to the tracker.
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)
	l.capture(fmt.Errorf(template, args...), map[string]string{"component": "logger"})
}

// Errorw logs a structured error entry. If an "error" field carries an
// error value it is reported as-is, keeping the original chain for
// errors.Is matching on the tracker side.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok && key == "error" {
			if err, ok := keysAndValues[i+1].(error); ok {
				l.capture(err, map[string]string{"message": msg})
				return
			}
		}
	}
	l.capture(errors.Wrap(errors.ErrInternal, msg), nil)
}

// ErrorWithContext reports an error with caller-supplied tags.
func (l *Logger) ErrorWithContext(ctx context.Context, err error, tags map[string]string) {
	l.SugaredLogger.Error(err)
	if l.tracker != nil {
		l.tracker.CaptureError(ctx, err, tags)
	}
}

// Package-level helpers on the global logger.
func Debug(args ...interface{})                   { Get().Debug(args...) }
func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }
func Info(args ...interface{})                    { Get().Info(args...) }
func Infof(template string, args ...interface{})  { Get().Infof(template, args...) }
func Warn(args ...interface{})                    { Get().Warn(args...) }
func Warnf(template string, args ...interface{})  { Get().Warnf(template, args...) }
func Error(args ...interface{})                   { Get().Error(args...) }
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }
func Fatal(args ...interface{})                   { Get().Fatal(args...) }
func Fatalf(template string, args ...interface{}) { Get().Fatalf(template, args...) }

// Sync flushes buffered entries; safe to defer from main before Init.
func Sync() error {
	if global != nil {
		return global.Sync()
	}
	return nil
}
