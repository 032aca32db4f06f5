// Package requesttime provides middleware for request-scoped time.
// Every verdict produced while serving one request carries the same timestamp,
// including each verdict of a batch.
package requesttime

import (
	"net/http"
	"time"

	"petchain/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
