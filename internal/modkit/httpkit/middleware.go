package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"cancioneiro/internal/platform/net/middleware"
)

// DefaultRequestTimeout bounds a request unless StackOptions says otherwise
const DefaultRequestTimeout = 30 * time.Second

// StackOptions tunes CommonStack
type StackOptions struct {
	// RequestTimeout also bounds synchronous job continuations
	RequestTimeout time.Duration
	// Origins is the CORS allow list, empty allows any origin
	Origins []string
	// SlowRequest is when the access log switches to warn
	SlowRequest time.Duration
}

// CommonStack returns the baseline middleware every API route runs behind
func CommonStack(opts ...StackOptions) []func(http.Handler) http.Handler {
	var o StackOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(o.SlowRequest),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(o.Origins),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.StripSlashes(),
		middleware.Timeout(o.RequestTimeout),
	}
}
