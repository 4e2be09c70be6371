package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the single process-wide logger, following core/loggerConfig.go's
// package-level *zap.SugaredLogger, but without the teacher's separate
// per-handler buffered-logger indirection: this server's handlers are
// fixed Go code, not user-supplied policy scripts, so there is no "flush
// one handler's log lines as a block" concern to design around.
var logger *zap.SugaredLogger

// SetupLogger builds the process logger from a LOG_LEVEL name
// ("debug"/"info"/"warn"/"error"). Unknown levels fall back to info. The
// teacher's console-in-development/JSON-in-production split is preserved
// via the development flag.
func SetupLogger(level string, development bool) *zap.SugaredLogger {
	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      development,
		Encoding:         encodingFor(development),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			EncodeLevel:   zapcore.LowercaseLevelEncoder,
			CallerKey:     "caller",
			EncodeCaller:  zapcore.ShortCallerEncoder,
			TimeKey:       "ts",
			EncodeTime:    zapcore.ISO8601TimeEncoder,
			StacktraceKey: "stacktrace",
		},
	}

	l, err := zcfg.Build()
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	logger = l.Sugar()
	return logger
}

func encodingFor(development bool) string {
	if development {
		return "console"
	}
	return "json"
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger returns the process logger, initializing a default
// info/console logger if SetupLogger has not been called yet — useful for
// package-level tests that log without going through cmd/radiusd.
func GetLogger() *zap.SugaredLogger {
	if logger == nil {
		return SetupLogger(DefaultLogLevel, true)
	}
	return logger
}
