// Package requesttime pins a single "now" per HTTP request so guard windows,
// createdAt stamps, and logs within one request agree.
package requesttime

import (
	"net/http"
	"time"

	"guidinghand/pkg/requestcontext"
)

// Middleware pins the wall clock in UTC.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock pins now() instead of the wall clock.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
