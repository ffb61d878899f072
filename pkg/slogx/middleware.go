package slogx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/progress/jsdo/pkg/idx"
)

// RequestIDHeader carries the correlation id between the SDK and a backend.
const RequestIDHeader = "X-Request-ID"

// HTTPMiddleware logs each backend request with the credential scheme it
// presented and echoes the request id, so SDK and backend log lines join on
// req_id. Rejected requests (401, 403) are logged at warn.
func HTTPMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// The SDK stamps every request; other clients get a fresh id
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = idx.New().String()
			}
			w.Header().Set(RequestIDHeader, reqID)

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"credential", credentialScheme(r),
			)

			// Handlers log through FromContext
			r = r.WithContext(WithContext(r.Context(), logger))

			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			if rw.status == http.StatusUnauthorized || rw.status == http.StatusForbidden {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http_request",
				"status", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// credentialScheme names what authenticated r, never its value.
func credentialScheme(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, _, _ := strings.Cut(authz, " ")
		return strings.ToLower(scheme)
	}
	if _, err := r.Cookie("JSESSIONID"); err == nil {
		return "cookie"
	}
	return "none"
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
