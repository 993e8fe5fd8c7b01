package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"pointbox/customer-web/internal/auth"
	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/i18n"
	"pointbox/customer-web/internal/session"
	"pointbox/customer-web/internal/store"
)

// Browser is everything one browser owns for the duration of a request.
type Browser struct {
	ID      string
	Store   store.Store
	API     *backend.Client
	Session *session.Manager
	Lang    *i18n.Localizer
}

type browserKey struct{}

func browserFromContext(ctx context.Context) *Browser {
	b, _ := ctx.Value(browserKey{}).(*Browser)
	return b
}

// browserMiddleware identifies the browser by its signed cookie, issuing a
// fresh id when the cookie is absent or invalid, and binds its state.
func (s *Server) browserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.browserID(r)
		if id == "" {
			id = uuid.NewString()
			token, err := auth.NewBrowserToken(s.cfg.SessionSecret, s.cfg.SessionIssuer, s.cfg.SessionTTL, id)
			if err != nil {
				s.logger.ErrorContext(r.Context(), "browser token failed", "error", err)
				writeError(w, http.StatusInternalServerError, "server_error")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.SessionCookie,
				Value:    token,
				Path:     "/",
				MaxAge:   int(s.cfg.SessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := r.Context()
		scoped := s.states.Scope(id)
		api := s.api.Bind(scoped)
		manager := session.NewManager(api, scoped, s.logger.With("browser_id", id), s.cfg.SessionVerifyInterval)
		manager.Load(ctx)

		b := &Browser{
			ID:      id,
			Store:   scoped,
			API:     api,
			Session: manager,
			Lang:    i18n.NewLocalizer(ctx, s.catalog, scoped),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, browserKey{}, b)))
	})
}

func (s *Server) browserID(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	claims, err := auth.ParseBrowserToken(s.cfg.SessionSecret, s.cfg.SessionIssuer, cookie.Value)
	if err != nil {
		return ""
	}
	return claims.BrowserID
}

// requireCustomer confirms the session with the backend and sends anyone
// without a customer to /login.
func (s *Server) requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := browserFromContext(r.Context())
		if b == nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		b.Session.Restore(r.Context())
		if !b.Session.IsAuthenticated() {
			if wantsJSON(r) {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
