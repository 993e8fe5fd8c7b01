package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/config"
	"pointbox/customer-web/internal/i18n"
	"pointbox/customer-web/internal/store"
)

type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	api     *backend.Client
	states  store.Scoper
	catalog *i18n.Catalog
	pages   map[string]*template.Template
	metrics http.Handler

	now     func() time.Time
	newTick func(time.Duration) (<-chan time.Time, func())
}

func NewServer(cfg config.Config, api *backend.Client, states store.Scoper, catalog *i18n.Catalog, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		api:     api,
		states:  states,
		catalog: catalog,
		pages:   pages,
		metrics: promhttp.Handler(),
		now:     time.Now,
		newTick: func(d time.Duration) (<-chan time.Time, func()) {
			ticker := time.NewTicker(d)
			return ticker.C, ticker.Stop
		},
	}, nil
}

// WithMetricsHandler serves /metrics from h instead of the default registry.
func (s *Server) WithMetricsHandler(h http.Handler) *Server {
	s.metrics = h
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics)

	r.Group(func(r chi.Router) {
		r.Use(s.browserMiddleware)

		r.Get("/", s.handleHome)
		r.Get("/terms", s.handleTerms)
		r.Get("/faqs", s.handleFAQs)
		r.Get("/how_it_works", s.handleHowItWorks)
		r.Get("/newsletter", s.handleNewsletters)
		r.Get("/contact", s.handleContact)
		r.Post("/contact", s.handleContactSubmit)
		r.Get("/brands", s.handleBrands)
		r.Get("/settings", s.handleSettings)
		r.Post("/newsletter-emails", s.handleNewsletterEmail)

		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/login/reset", s.handleLoginReset)
		r.Post("/login/reset", s.handleLoginResetSubmit)
		r.Get("/signup", s.handleSignupPage)
		r.Post("/signup", s.handleSignup)
		r.Get("/verify-otp", s.handleVerifyPage)
		r.Post("/verify-otp", s.handleVerify)
		r.Post("/verify-otp/resend", s.handleVerifyResend)
		r.Post("/logout", s.handleLogout)
		r.Post("/language", s.handleLanguage)

		r.Get("/streams/banners", s.handleBannerStream)
		r.Get("/streams/promotions", s.handlePromotionStream)

		r.Route("/customer", func(r chi.Router) {
			r.Use(s.requireCustomer)
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/customer/dashboard", http.StatusFound)
			})
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/redeem", s.handleRedeemPage)
			r.Post("/redeem", s.handleRedeem)
			r.Get("/profile", s.handleProfile)
			r.Post("/profile", s.handleProfileUpdate)
			r.Get("/brands", s.handleCustomerBrands)
			r.Post("/brands/link", s.handleLinkBrand)
			r.Get("/banners", s.handleCustomerBanners)
			r.Get("/transactions", s.handleTransactions)
			r.Get("/transactions.csv", s.handleTransactionsCSV)
			r.Get("/support", s.handleSupport)
			r.Post("/support", s.handleSupportSubmit)
			r.Get("/change-password", s.handleChangePassword)
			r.Post("/change-password", s.handleChangePasswordSubmit)
			r.Post("/account/delete", s.handleDeleteAccount)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})

	return r
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// readForm returns the submitted fields from either a form post or a JSON
// object body.
func readForm(r *http.Request) (url.Values, error) {
	if !isJSONBody(r) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	var body map[string]interface{}
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	values := url.Values{}
	for key, raw := range body {
		switch v := raw.(type) {
		case string:
			values.Set(key, v)
		case bool:
			values.Set(key, strconv.FormatBool(v))
		case float64:
			values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return values, nil
}

// seeOther ends a form post. JSON clients get the target instead of a
// redirect.
func (s *Server) seeOther(w http.ResponseWriter, r *http.Request, target string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// statusFor maps a backend failure to the status of the rendered page.
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if backend.IsValidation(err) {
		return http.StatusBadRequest
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return apiErr.Status
		case apiErr.Status < 300:
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusBadGateway
}

// localPath keeps only the path and query of a same-site URL.
func localPath(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Path == "" || !strings.HasPrefix(parsed.Path, "/") || strings.HasPrefix(parsed.Path, "//") {
		return fallback
	}
	if parsed.RawQuery == "" {
		return parsed.Path
	}
	return parsed.Path + "?" + parsed.RawQuery
}

func withQuery(path, key, value string) string {
	parsed, err := url.Parse(path)
	if err != nil {
		return path
	}
	query := parsed.Query()
	query.Set(key, value)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
