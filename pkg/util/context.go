package util

import (
	"context"
	"time"
)

type key string

const (
	requestIDKey = key("x-request-id")
	eventIDKey   = key("event-id")
	actorIDKey   = key("actor-id")
)

// WithRequestID returns a context with request id.
// A new id is generated when the provided one is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewRequestID()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns request id from context
// will return empty string if not present
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithEventID returns a context with event id, usually the id of the
// intake message or domain event being handled.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// GetEventID returns event id from context
// will return empty string if not present
func GetEventID(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey).(string)
	return id
}

// WithActorID returns a context with the id of the user acting on an order.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// GetActorID returns actor id from context
func GetActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}

// Detach returns a context that keeps the request scoped values of ctx but
// is never cancelled, for work that outlives the request.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// TimePointer converts a time.Time to a pointer to a time.Time.
func TimePointer(t time.Time) *time.Time {
	return &t
}
