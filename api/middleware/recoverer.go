package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/phonelife/storefront/api/responses"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. It sits outside the
// session and request id middleware, so both ids are read back from the
// request cookie and the response header.
func Recoverer(logg *logger.Logger, sessionCookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if e, ok := rec.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(rec)
				}

				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					fields := map[string]any{
						"panic":  fmt.Sprint(rec),
						"method": r.Method,
						"path":   r.URL.Path,
					}
					if reqID := w.Header().Get(requestIDHeader); reqID != "" {
						fields["request_id"] = reqID
					}
					if sessionCookie != "" {
						if c, cerr := r.Cookie(sessionCookie); cerr == nil {
							fields["session_id"] = c.Value
						}
					}
					ctx = logg.WithFields(ctx, fields)
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
