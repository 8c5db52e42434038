package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/utils"
)

// statusWriter captures status code and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	// Ensure status is set if handler wrote body without calling WriteHeader.
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// probes are logged at debug so they do not drown the access log.
var probes = map[string]bool{"/healthz": true, "/readyz": true}

// Log returns a middleware that logs one line per HTTP request. Server
// errors log at error, client errors at warn. The client address is
// resolved the same way the allow-list and rate limit resolve it.
func Log(loggerClient logger.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(ww, r)

			if ww.status == 0 {
				ww.status = http.StatusOK
			}
			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.status),
				logger.Int("bytes", ww.bytes),
				logger.Duration("duration", time.Since(start)),
				logger.String("remote_ip", utils.ResolveClient(r, trustProxy).String()),
				logger.String("user_agent", r.UserAgent()),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			}

			switch {
			case ww.status >= http.StatusInternalServerError:
				loggerClient.Error("http_request", fields...)
			case ww.status >= http.StatusBadRequest:
				loggerClient.Warn("http_request", fields...)
			case probes[r.URL.Path]:
				loggerClient.Debug("http_request", fields...)
			default:
				loggerClient.Info("http_request", fields...)
			}
		})
	}
}
