// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// This package defines context keys and getter/setter functions for values
// that are typically set by middleware but consumed by services. By keeping
// this package free of net/http dependencies, services can import only what
// they need without pulling in HTTP-related code.
//
// Usage in services (read values):
//
//	participantID := requestcontext.ParticipantID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithParticipantID(ctx, participantID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "quorum/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	participantIDKey struct{}
	capabilityKey    struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyParticipantID = participantIDKey{}
	ContextKeyCapability    = capabilityKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// ParticipantID retrieves the authenticated participant ID from the context.
// Returns the zero value (nil UUID) if not set.
func ParticipantID(ctx context.Context) id.ParticipantID {
	if pid, ok := ctx.Value(ContextKeyParticipantID).(id.ParticipantID); ok {
		return pid
	}
	return id.ParticipantID{}
}

// WithParticipantID injects a participant ID into the context.
func WithParticipantID(ctx context.Context, pid id.ParticipantID) context.Context {
	return context.WithValue(ctx, ContextKeyParticipantID, pid)
}

// Capability retrieves the caller capability from the context.
// Returns the empty capability if not set.
func Capability(ctx context.Context) id.Capability {
	if c, ok := ctx.Value(ContextKeyCapability).(id.Capability); ok {
		return c
	}
	return ""
}

// WithCapability injects a caller capability into the context.
func WithCapability(ctx context.Context, c id.Capability) context.Context {
	return context.WithValue(ctx, ContextKeyCapability, c)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers,
// CLI, tests). Campaign expiry checks read this so tests can inject clocks.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
