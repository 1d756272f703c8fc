package common

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// NewNotificationID generates an outbox entry ID. Format: ntf_<uuid>
func NewNotificationID() string {
	return "ntf_" + uuid.New().String()
}

// NewRequestID generates a correlation ID for one report generation run
func NewRequestID() string {
	return "gen_" + uuid.NewString()[:8]
}

// WithRequestID stores a request ID on the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the context's request ID, or a fresh one when none is set
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return NewRequestID()
}
