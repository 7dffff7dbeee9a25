package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lorrc/service-desk-sla/internal/infrastructure/logging"
)

// RequestLogger logs one line per request once the handler returns. The
// wrapped writer keeps Hijacker and Flusher so websocket upgrades pass through.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	reqLogger := &logging.HTTPRequestLogger{Logger: logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqLogger.LogRequest(r.Context(), logging.RequestInfo{
				Method:       r.Method,
				Path:         r.URL.Path,
				Query:        r.URL.RawQuery,
				StatusCode:   status,
				Duration:     time.Since(start),
				BytesWritten: int64(ww.BytesWritten()),
				ClientIP:     getClientIP(r),
				UserAgent:    r.UserAgent(),
			})
		})
	}
}

// RecoveryLogger turns a handler panic into a logged 500. http.ErrAbortHandler
// is re-raised so net/http can abort the connection quietly.
func RecoveryLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logging.LogPanic(r.Context(), logger, v)
				writeJSONError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
