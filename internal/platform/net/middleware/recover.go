package middleware

import (
	"net/http"
	"runtime/debug"

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"
	phttp "cancioneiro/internal/platform/net/http"
)

var panicReply = phttp.Handle(func(*http.Request) phttp.Response {
	return phttp.Error(perr.PanicErrf("internal error"))
})

// RecoverJSON turns a handler panic into the usual error envelope with a 500 and
// logs the stack. http.ErrAbortHandler is re-panicked so net/http can drop the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered")
			panicReply(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
