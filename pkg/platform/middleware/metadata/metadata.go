package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"petchain/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and calling software from the
// request and adds them to the context for use by handlers and services.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(),
			ClientIPFromRequest(r),
			CallerFromUserAgent(r.Header.Get("User-Agent")),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromUserAgent reduces a User-Agent header to "name/version", prefixed
// with "bot:" for crawlers. Empty headers give "".
func CallerFromUserAgent(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	ua := useragent.New(header)
	name, version := ua.Browser()
	if name == "" {
		name = "unknown"
	}

	caller := name
	if version != "" {
		caller += "/" + version
	}
	if ua.Bot() {
		caller = "bot:" + caller
	}
	return caller
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port", or "[::1]:port" for IPv6
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
