package middleware

import (
	stdhttp "net/http"
	"runtime/debug"

	perr "listingsync/internal/platform/errors"
	"listingsync/internal/platform/logger"
	phttp "listingsync/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into the standard error envelope with a 500
// the stack is logged against the request id; http.ErrAbortHandler is re-raised
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == stdhttp.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().Interface("panic", v).Bytes("stack", debug.Stack()).
				Str("path", r.URL.Path).Msg("panic recovered")
			phttp.Error(perr.PanicErrf("internal error")).Write(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
