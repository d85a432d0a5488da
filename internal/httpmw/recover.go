package httpmw

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/xerrors"
)

// Recover turns a handler panic into a 500 and an error log. onPanic, when
// set, runs after logging; the server uses it to count panics.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				ctx := r.Context()
				logger.With(
					"request_id", RequestIDFromContext(ctx),
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
					"stack", string(debug.Stack()),
				).Error(ctx, xerrors.WithStack(err), "httpserver panic recovered")

				if onPanic != nil {
					onPanic()
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
