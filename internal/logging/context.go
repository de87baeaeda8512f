package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Source names the process surface an operation came from.
type Source string

const (
	SourceCLI    Source = "cli"
	SourceDaemon Source = "daemon"
	SourceAPI    Source = "api"
)

type operationKey struct{}

type operation struct {
	source Source
	id     string
}

// WithOperation tags ctx with the source and id of the current operation.
// An empty id gets a generated one.
func WithOperation(ctx context.Context, source Source, id string) context.Context {
	if id == "" {
		id = NewOperationID()
	}
	return context.WithValue(ctx, operationKey{}, operation{source: source, id: id})
}

// NewOperationID returns a short random id.
func NewOperationID() string {
	return uuid.NewString()[:8]
}

// OperationFromContext returns the source and id set by WithOperation.
func OperationFromContext(ctx context.Context) (Source, string) {
	if ctx == nil {
		return "", ""
	}
	if op, ok := ctx.Value(operationKey{}).(operation); ok {
		return op.source, op.id
	}
	return "", ""
}

// LoggerFromContext returns the global logger tagged with the operation in
// ctx, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := Logger()
	if source, id := OperationFromContext(ctx); id != "" {
		logger = logger.With(KeySource, string(source), KeyOperation, id)
	}
	return logger
}

// ContextLogger logs through the *Context slog methods.
type ContextLogger struct {
	ctx    context.Context
	logger *slog.Logger
}

func FromContext(ctx context.Context) *ContextLogger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ContextLogger{
		ctx:    ctx,
		logger: LoggerFromContext(ctx),
	}
}

func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		ctx:    cl.ctx,
		logger: cl.logger.With(args...),
	}
}

func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, args...)
}

func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, args...)
}

func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, args...)
}

func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, args...)
}
