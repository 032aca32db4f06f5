package testutil

import (
	"net/http"
	"time"

	"petchain/pkg/requestcontext"
)

// WithRequestMetadata sets what the request ID, request time and client
// metadata middleware would set for a real request.
func WithRequestMetadata(req *http.Request, requestID string, now time.Time) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithClientMetadata(ctx, "192.0.2.10", "petchain-test/1.0")
	return req.WithContext(ctx)
}
