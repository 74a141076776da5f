package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tonicoded/ytvideoshorts/internal/logger"
)

type contextKey string

const requestIDKey contextKey = "request-id"

// RequestID tags every request with a unique ID, exposed in the response
// headers and the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the request ID set by the RequestID
// middleware, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AccessLog logs one line per request with status and duration. The line is
// emitted from a deferred call so aborted transfers are still recorded.
func AccessLog(log *logger.ComponentLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			defer func() {
				log.Info("request", map[string]any{
					"id":       RequestIDFromContext(r.Context()),
					"method":   r.Method,
					"path":     r.URL.Path,
					"status":   rec.status,
					"bytes":    rec.bytes,
					"duration": time.Since(start).String(),
				})
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// statusRecorder captures the response status and size while passing Flush
// through so streaming stays unbuffered.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
