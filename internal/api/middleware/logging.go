// Package middleware holds the monitor's HTTP middleware.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

// accessLevel picks the level of an access log line. Server-side failures
// stand out at WARN; a handler that wrote nothing answered 200.
func accessLevel(status int) (slog.Level, int) {
	if status == 0 {
		return slog.LevelInfo, http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		return slog.LevelWarn, status
	}
	return slog.LevelInfo, status
}

// RequestLogger writes one access line per request after it completes, and
// puts chi's request id into the context for logger.WithContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			r = r.WithContext(ctx)
			rec := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			began := time.Now()

			defer func() {
				level, status := accessLevel(rec.Status())
				logger.From(base).WithContext(ctx).Log(ctx, level, "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"status", status,
					"bytes", rec.BytesWritten(),
					"duration", time.Since(began).String(),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(rec, r)
		}
		return http.HandlerFunc(fn)
	}
}
