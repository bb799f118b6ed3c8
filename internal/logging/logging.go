package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	initOnce sync.Once
	logger   *zap.Logger
	exitFunc = os.Exit
)

// L returns the shared application logger, initializing it on first use.
func L() *zap.Logger {
	initOnce.Do(func() {
		logger = newLogger()
	})
	return logger
}

// Replace swaps the shared logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	previous := L()
	logger = l
	return func() { logger = previous }
}

type operationKey struct{}

type operation struct {
	name string
	id   string
}

// StartOperation marks ctx as one unit of work named op with a fresh op_id.
// An operation already on ctx is kept, so nested calls log under the outer id.
func StartOperation(ctx context.Context, op string) context.Context {
	if _, ok := ctx.Value(operationKey{}).(operation); ok {
		return ctx
	}
	return context.WithValue(ctx, operationKey{}, operation{name: op, id: uuid.NewString()})
}

// OperationID returns the op_id carried by ctx.
func OperationID(ctx context.Context) (string, bool) {
	o, ok := ctx.Value(operationKey{}).(operation)
	return o.id, ok
}

// With tags l with the op and op_id carried by ctx. Without an operation l
// is returned as is.
func With(ctx context.Context, l *zap.Logger) *zap.Logger {
	o, ok := ctx.Value(operationKey{}).(operation)
	if !ok {
		return l
	}
	return l.With(zap.String("op", o.name), zap.String("op_id", o.id))
}

// Sync flushes any buffered log entries
func Sync() error {
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()

	level := parseLevel(os.Getenv("ORGOALS_LOG_LEVEL"))
	config.Level = zap.NewAtomicLevelAt(level)

	format := strings.ToLower(os.Getenv("ORGOALS_LOG_FORMAT"))
	if format == "json" || format == "structured" {
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if strings.EqualFold(os.Getenv("ORGOALS_LOG_SOURCE"), "true") {
		config.Development = true
	}

	// stdout belongs to CLI output
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}

	return logger
}

func parseLevel(value string) zapcore.Level {
	switch strings.ToLower(value) {
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

// Fatal logs the message at error level and exits with status 1.
func Fatal(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
	exitFunc(1)
}
