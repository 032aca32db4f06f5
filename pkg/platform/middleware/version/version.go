// Package version provides middleware for API version extraction and validation.
package version

import (
	"encoding/json"
	"log/slog"
	"net/http"

	id "petchain/pkg/domain"
	"petchain/pkg/requestcontext"
)

// HeaderAPIVersion lets a client pin the API version it was written against.
const HeaderAPIVersion = "X-API-Version"

// ExtractVersion creates middleware that extracts the API version from a Chi subrouter.
// When using Chi's r.Route("/v1", ...), the version is already determined by the route match.
// This middleware sets the version in the context for downstream handlers.
//
// Usage:
//
//	r.Route("/v1", func(v1 chi.Router) {
//	    v1.Use(version.ExtractVersion(id.APIVersionV1))
//	    // ... routes
//	})
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateRequestedVersion rejects requests whose X-API-Version header names
// an unknown version or a version other than the route's. Requests without
// the header pass.
//
// Must run after ExtractVersion.
func ValidateRequestedVersion(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := r.Header.Get(HeaderAPIVersion)
			if requested == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			routeVersion := requestcontext.APIVersion(ctx)
			if routeVersion.IsNil() {
				logger.ErrorContext(ctx, "version validation failed: route version not set",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeVersionError(w, http.StatusInternalServerError, "internal_error", "route version not configured")
				return
			}

			v, err := id.ParseAPIVersion(requested)
			if err != nil || v != routeVersion {
				logger.WarnContext(ctx, "requested API version does not match route",
					"requested_version", requested,
					"route_version", routeVersion.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
				writeVersionError(w, http.StatusBadRequest, "bad_request",
					"requested API version not served by this endpoint")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// versionErrorResponse represents the JSON error response for version-related errors.
type versionErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// writeVersionError writes a JSON error response for version-related errors.
func writeVersionError(w http.ResponseWriter, statusCode int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := versionErrorResponse{
		Error:            errCode,
		ErrorDescription: description,
	}
	_ = json.NewEncoder(w).Encode(resp)
}
