package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"reelist/models"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests
func Logging(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			}).Info("HTTP request")
		})
	}
}

// RequireAPIToken gates mutating JSON routes behind a bearer token. Auth is
// disabled when no token is configured.
func RequireAPIToken(apiToken string, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiToken == "" {
				next.ServeHTTP(w, r)
				return
			}
			supplied := bearerToken(r)
			if supplied == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(apiToken)) != 1 {
				writeError(w, logger, models.Unauthorizedf("missing or invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
