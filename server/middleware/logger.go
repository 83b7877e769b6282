// Package middleware provides HTTP middleware for the import API.
package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joeychilson/chatimport/logger"
)

// Logger returns a middleware that logs one line per request with status,
// size, and duration. The chi request id is included when present.
func Logger(log logger.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = logger.Noop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				args := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"remote", r.RemoteAddr,
				}
				if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
					args = append(args, "request_id", reqID)
				}
				log.Info("request", args...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
