// Package requestid assigns every request an ID used in logs, audit events
// and the X-Request-ID response header.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"petchain/pkg/requestcontext"
)

// Header carries the request ID in both directions.
const Header = "X-Request-ID"

const maxInboundLength = 128

// Middleware reuses a well-formed inbound X-Request-ID (for correlation with
// the calling ledger node) or generates a new one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(Header))
		if reqID == "" || len(reqID) > maxInboundLength || !printable(reqID) {
			reqID = uuid.NewString()
		}

		w.Header().Set(Header, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func printable(s string) bool {
	for _, c := range s {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
