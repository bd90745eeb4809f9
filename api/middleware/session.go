package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/phonelife/storefront/pkg/config"
	"github.com/phonelife/storefront/pkg/logger"
)

const defaultSessionCookie = "pl_session"

// SessionCookieName is the configured cookie name, pl_session when unset.
func SessionCookieName(cfg config.CartConfig) string {
	if name := strings.TrimSpace(cfg.CookieName); name != "" {
		return name
	}
	return defaultSessionCookie
}

// Session makes sure every storefront request carries a shopper session id,
// issuing a cookie on first contact. Unparseable ids are replaced.
func Session(cfg config.CartConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	name := SessionCookieName(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if c, err := r.Cookie(name); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					sessionID = parsed.String()
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				cookie := &http.Cookie{
					Name:     name,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				}
				if cfg.PersistTTL > 0 {
					cookie.MaxAge = int(cfg.PersistTTL.Seconds())
				}
				http.SetCookie(w, cookie)
			}

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
