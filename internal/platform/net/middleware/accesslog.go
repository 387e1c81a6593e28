package middleware

import (
	"net/http"
	"time"

	"cancioneiro/internal/platform/logger"
	pnet "cancioneiro/internal/platform/net"
)

// DefaultSlowRequest is when a request is logged at warn
const DefaultSlowRequest = time.Second

type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Flush keeps streaming responses working behind the recorder
func (rw *recorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// AccessLog puts the request id on the logger context, echoes it as X-Request-Id
// and logs one line per request. Requests slower than slow log at warn, 0 uses
// DefaultSlowRequest. It must run after RequestID
func AccessLog(slow time.Duration) Middleware {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := pnet.RequestID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-Id", reqID)
				r = r.WithContext(logger.WithRequest(r.Context(), reqID))
			}
			rw := &recorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rw, r)

			if rw.status == 0 {
				rw.status = http.StatusOK
			}
			elapsed := time.Since(start)
			log := logger.C(r.Context())
			evt := log.Info()
			switch {
			case rw.status >= http.StatusInternalServerError:
				evt = log.Error()
			case elapsed >= slow:
				evt = log.Warn()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Int("bytes", rw.bytes).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}
