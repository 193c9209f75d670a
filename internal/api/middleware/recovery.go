package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/narvanalabs/solr-monitor/internal/api/errors"
	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

// Recovery turns a handler panic into a logged INTERNAL_ERROR response.
// http.ErrAbortHandler is re-raised so the server aborts the connection, and
// nothing is written when the handler already started its response.
func Recovery(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				apiErr := apierrors.NewInternalError("internal error").
					WithRequestID(middleware.GetReqID(r.Context()))
				log := logger.From(base).WithContext(r.Context())
				log.Error("panic recovered",
					append(apiErr.LogAttrs(true),
						"panic", rec,
						"method", r.Method,
						"path", r.URL.Path,
					)...,
				)

				if ww, ok := w.(middleware.WrapResponseWriter); ok && ww.Status() != 0 {
					return
				}
				apierrors.WriteError(w, apiErr)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
