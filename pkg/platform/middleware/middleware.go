// Package middleware sets request-scoped context values consumed through
// pkg/requestcontext.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"mosolo/pkg/requestcontext"
)

// RequestID assigns a correlation ID, honoring an inbound X-Request-Id from
// the gateway.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}

// Actor records the back-office operator identity forwarded by the gateway.
// Customer traffic carries no actor header.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get("X-Admin-Actor"); actor != "" {
			r = r.WithContext(requestcontext.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
