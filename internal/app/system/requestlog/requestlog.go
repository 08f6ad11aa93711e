// Package requestlog tags each request with an id and logs its outcome.
package requestlog

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/taskhub/internal/app/system/limits"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

type ctxKey struct{}

// Middleware assigns a request id (reusing a client-supplied one), echoes it
// in the response, stores a request-scoped logger in the context, and logs
// one line per request.
func Middleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(Header)
			if id == "" || len(id) > limits.MaxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(Header, id)

			log := base.With(
				zap.String("req_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, log)))

			log.Info("http_request",
				zap.Int("status", rw.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// Logger returns the request-scoped logger, or fallback outside the middleware.
func Logger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
