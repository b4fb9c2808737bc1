package testutil

import (
	"context"
	"net/http"
	"time"

	"fieldledger/pkg/requestcontext"
)

// WithCallContext seeds a request with the actor, request ID, and clock the
// middleware chain would normally install.
func WithCallContext(req *http.Request, actor, requestID string, now time.Time) *http.Request {
	ctx := req.Context()
	if actor != "" {
		ctx = requestcontext.WithActor(ctx, actor)
	}
	if requestID != "" {
		ctx = requestcontext.WithRequestID(ctx, requestID)
	}
	if !now.IsZero() {
		ctx = requestcontext.WithTime(ctx, now)
	}
	return req.WithContext(ctx)
}

// CallContext builds a bare context with the same request-scoped values, for
// calling services directly.
func CallContext(actor, requestID string, now time.Time) context.Context {
	ctx := context.Background()
	if actor != "" {
		ctx = requestcontext.WithActor(ctx, actor)
	}
	if requestID != "" {
		ctx = requestcontext.WithRequestID(ctx, requestID)
	}
	if !now.IsZero() {
		ctx = requestcontext.WithTime(ctx, now)
	}
	return ctx
}
