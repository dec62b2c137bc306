package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AuthMiddleware requires a bearer token equal to the docgraph API key.
// Rejections carry a JSON error body like every other endpoint.
func AuthMiddleware(apiKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			reason := ""
			switch {
			case !ok || token == "":
				reason = "missing bearer token"
			case subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1:
				reason = "invalid api key"
			}
			if reason != "" {
				log.Warn("unauthorized",
					"reason", reason,
					"route", r.Method+" "+r.URL.Path,
					"request_id", requestID(r),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="docgraph"`)
				jsonError(w, reason, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request with the upload size, the response
// size and, for extraction, whether the result came from the cache.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			attrs := []any{
				"request_id", requestID(r),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes_in", r.ContentLength,
				"bytes_out", sw.written,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if c := sw.Header().Get("X-Cache"); c != "" {
				attrs = append(attrs, "cache", c)
			}
			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "request", attrs...)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
