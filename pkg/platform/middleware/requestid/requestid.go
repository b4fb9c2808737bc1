// Package requestid provides middleware that assigns each request a
// correlation ID, used to tie audit events and log lines back to one call.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"fieldledger/pkg/requestcontext"
)

// Header carries the request ID on responses and may supply one on requests
// from upstream proxies.
const Header = "X-Request-Id"

// Middleware reuses the inbound request ID if present, otherwise issues a new
// one, and stores it in the context for services and audit records.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
