package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"pointbox/customer-web/internal/content"
	"pointbox/customer-web/internal/i18n"
	"pointbox/customer-web/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutSite      = "site"
	layoutAuth      = "auth"
	layoutDashboard = "dashboard"
)

var templateFuncs = template.FuncMap{
	"points": formatPoints,
	"date":   formatDate,
	"pct": func(value float64) string {
		return strconv.FormatFloat(value, 'f', 0, 64) + "%"
	},
	"upper": strings.ToUpper,
}

func formatPoints(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatDate(value interface{}) string {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("Jan 2, 2006")
	case string:
		parsed, err := content.ParseTime(v)
		if err != nil {
			return v
		}
		return parsed.Format("Jan 2, 2006")
	}
	return fmt.Sprint(value)
}

// parseTemplates builds one template set per page: the shared layouts plus
// the page's own "title" and "content" blocks.
func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layouts").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout_*.html")
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(templateFS, "templates/page_*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path.Base(file), "page_"), ".html")
		pages[name] = clone
	}
	return pages, nil
}

type refresh struct {
	Seconds int    `json:"seconds"`
	URL     string `json:"url"`
}

// view is what every layout renders. Page specific values live in Data.
type view struct {
	Layout         string
	Page           string
	TitleKey       string
	Lang           string
	Dir            string
	Languages      []string
	Path           string
	User           *session.User
	Logo           string
	Social         []content.SocialLink
	WhatsAppURL    string
	ChatWebhookURL string
	FooterNotice   string
	FooterError    string
	Notice         string
	Error          string
	Refresh        *refresh
	Year           int
	Data           interface{}

	loc *i18n.Localizer
}

func (v *view) T(key string) string {
	if v.loc == nil {
		return key
	}
	return v.loc.T(key)
}

func (v *view) Title() string {
	title := "PointBox"
	if v.TitleKey != "" {
		title = v.T(v.TitleKey) + " | " + title
	}
	return title
}

type jsonView struct {
	Page    string        `json:"page"`
	Lang    string        `json:"lang"`
	Dir     string        `json:"dir"`
	User    *session.User `json:"user"`
	Notice  string        `json:"notice,omitempty"`
	Error   string        `json:"error,omitempty"`
	Refresh *refresh      `json:"refresh,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
}

func (s *Server) newView(r *http.Request, layout, page, titleKey string) *view {
	v := &view{
		Layout:         layout,
		Page:           page,
		TitleKey:       titleKey,
		Languages:      i18n.Languages,
		Path:           r.URL.Path,
		WhatsAppURL:    s.cfg.WhatsAppURL,
		ChatWebhookURL: s.cfg.ChatWebhookURL,
		Year:           s.now().Year(),
	}
	if b := browserFromContext(r.Context()); b != nil {
		v.loc = b.Lang
		v.Lang = b.Lang.Language()
		v.Dir = b.Lang.Dir()
		if b.Session.IsAuthenticated() {
			v.User = b.Session.User()
		}
	}
	return v
}

// siteView is a public page inside the marketing shell. The logo and social
// links come from the backend settings; failures leave them empty.
func (s *Server) siteView(r *http.Request, page, titleKey string) *view {
	v := s.newView(r, layoutSite, page, titleKey)
	if b := browserFromContext(r.Context()); b != nil {
		settings, err := b.API.GetWebSettings(r.Context())
		if err == nil {
			v.Logo = content.SettingsLogo(settings)
			v.Social = content.SocialLinks(settings)
		}
	}
	switch r.URL.Query().Get("newsletter") {
	case "subscribed":
		v.FooterNotice = v.T("footer.subscribed")
	case "failed":
		v.FooterError = v.T("footer.subscribeFailed")
	}
	return v
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, v *view) {
	if wantsJSON(r) {
		writeJSON(w, status, jsonView{
			Page:    v.Page,
			Lang:    v.Lang,
			Dir:     v.Dir,
			User:    v.User,
			Notice:  v.Notice,
			Error:   v.Error,
			Refresh: v.Refresh,
			Data:    v.Data,
		})
		return
	}
	tmpl, ok := s.pages[v.Page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "unknown page template", "page", v.Page)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, v.Layout, v); err != nil {
		s.logger.ErrorContext(r.Context(), "render failed", "page", v.Page, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
