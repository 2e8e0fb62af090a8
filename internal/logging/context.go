package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldOperationID is the standardized structured logging key for worker operation identifiers.
	FieldOperationID = "operation_id"
	// FieldClass is the standardized structured logging key for operation classes.
	FieldClass = "class"
	// FieldItemIndex is the standardized structured logging key for item indexes.
	FieldItemIndex = "item_index"
	// FieldCorrelationID is the standardized structured logging key for per-request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey int

const (
	operationIDKey contextKey = iota
	classKey
	correlationIDKey
)

// WithOperationID stores a worker operation id on the context.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey, id)
}

// WithClass stores an operation class name on the context.
func WithClass(ctx context.Context, class string) context.Context {
	return context.WithValue(ctx, classKey, class)
}

// WithCorrelationID stores a per-request correlation id on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the per-request correlation id stored on the
// context, or "" when none was set.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := ctx.Value(operationIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldOperationID, id))
	}
	if class, ok := ctx.Value(classKey).(string); ok && class != "" {
		fields = append(fields, slog.String(FieldClass, class))
	}
	if rid, ok := ctx.Value(correlationIDKey).(string); ok && rid != "" {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
