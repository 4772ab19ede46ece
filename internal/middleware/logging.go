package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"financeplanner/internal/auth"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.status = http.StatusOK
		rec.wroteHeader = true
	}
	return rec.ResponseWriter.Write(b)
}

// Logging writes one line per request to logger:
//
//	req=<id> POST /transactions/batch 201 12.3ms
func Logging(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Printf("req=%s %s %s %d %s",
				RequestIDFromContext(r.Context()),
				r.Method,
				r.URL.Path,
				rec.status,
				time.Since(start).Round(100*time.Microsecond),
			)
		})
	}
}

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Printf("panic recovered: req=%s %s %s: %v\n%s",
					RequestIDFromContext(r.Context()), r.Method, r.URL.Path, v, debug.Stack())
				auth.WriteJSONError(w, http.StatusInternalServerError, "internal error", "internal_error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
