package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/utils"
	"github.com/sirupsen/logrus"
)

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
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Logger logs one line per request.
func Logger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)

			entry := log.WithFields(logrus.Fields{
				"request_id": GetRequestID(r),
				"method":     r.Method,
				"uri":        r.RequestURI,
				"status":     sw.status,
				"bytes":      sw.bytes,
				"duration":   time.Since(start).String(),
				"ip":         ClientIP(r),
			})
			switch {
			case sw.status >= http.StatusInternalServerError:
				entry.Error("Request failed")
			case sw.status >= http.StatusBadRequest:
				entry.Warn("Request rejected")
			default:
				entry.Info("Request handled")
			}
		})
	}
}

// Recoverer turns a panic in a handler into a logged 500.
func Recoverer(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(logrus.Fields{
						"request_id": GetRequestID(r),
						"method":     r.Method,
						"uri":        r.RequestURI,
						"panic":      rec,
						"stack":      string(debug.Stack()),
					}).Error("Panic while handling request")
					utils.WriteError(w, apperror.Internal("unexpected server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
