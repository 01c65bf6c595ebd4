package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/filmjoin/observe"
)

// statusRecorder captures the response code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h in a span and records the request as one operation.
// Responses with a 5xx status count as failed operations.
func (s *Server) instrument(route string, h http.Handler) http.Handler {
	op := observe.Op{Component: "server", Name: route}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		_ = s.mw.Run(r.Context(), op, func(ctx context.Context) error {
			h.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status >= http.StatusInternalServerError {
				return fmt.Errorf("%s %s: status %d", r.Method, r.URL.Path, rec.status)
			}
			return nil
		})

		s.mw.Logger().Info(r.Context(), "request",
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", rec.status),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
