package http

import (
	"net/http"
	"strings"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/content"
	"pointbox/customer-web/internal/dashboard"
)

type homeData struct {
	Slides        []content.Slide     `json:"slides"`
	Promotions    []content.Promotion `json:"promotions"`
	Tiers         []dashboard.Tier    `json:"tiers"`
	RotateSeconds int                 `json:"rotateSeconds"`
}

var membershipTiers = []dashboard.Tier{
	dashboard.TierFor(0),
	dashboard.TierFor(1000),
	dashboard.TierFor(5000),
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "home", "nav.home")

	banners, err := b.API.GetWebBanners(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "home banners unavailable", "error", err)
	}
	v.Data = homeData{
		Slides:        content.HeroSlides(banners),
		Promotions:    content.Promotions(banners, s.now()),
		Tiers:         membershipTiers,
		RotateSeconds: int(s.cfg.BannerRotateInterval.Seconds()),
	}
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleTerms(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "terms", "terms.title")

	terms, err := b.API.GetWebTerms(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("terms.loadFailed"))
	}
	v.Data = content.Terms(terms)
	s.render(w, r, http.StatusOK, v)
}

type faqData struct {
	FAQs       []content.FAQ `json:"faqs"`
	Categories []string      `json:"categories"`
	Selected   string        `json:"selected"`
}

func (s *Server) handleFAQs(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "faqs", "faqs.title")

	records, err := b.API.GetWebFAQs(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("faqs.loadFailed"))
	}
	faqs := content.FAQs(records)
	selected := r.URL.Query().Get("category")
	if selected == "" {
		selected = "all"
	}
	v.Data = faqData{
		FAQs:       content.FilterFAQs(faqs, selected),
		Categories: content.FAQCategories(faqs),
		Selected:   selected,
	}
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleHowItWorks(w http.ResponseWriter, r *http.Request) {
	v := s.siteView(r, "how_it_works", "howItWorks.title")
	v.Data = homeData{Tiers: membershipTiers}
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleNewsletters(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "newsletter", "newsletter.title")

	records, err := b.API.GetWebNewsletters(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("newsletter.loadFailed"))
	}
	v.Data = content.Newsletters(records)
	s.render(w, r, http.StatusOK, v)
}

type contactData struct {
	Form     backend.ContactRequest `json:"form"`
	Subjects []string               `json:"subjects"`
}

var contactSubjects = []string{"general", "support", "billing", "partnership", "feedback", "other"}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	v := s.siteView(r, "contact", "contact.title")
	v.Data = contactData{Subjects: contactSubjects}
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "contact", "contact.title")

	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req := backend.ContactRequest{
		Name:    strings.TrimSpace(form.Get("name")),
		Email:   strings.TrimSpace(form.Get("email")),
		Phone:   strings.TrimSpace(form.Get("phone")),
		Subject: form.Get("subject"),
		Message: strings.TrimSpace(form.Get("message")),
	}
	_, err = b.API.SubmitContact(r.Context(), req)
	if err != nil {
		v.Error = backend.Message(err, v.T("contact.sendError"))
		v.Data = contactData{Form: req, Subjects: contactSubjects}
		s.render(w, r, statusFor(err), v)
		return
	}
	v.Notice = v.T("contact.sent")
	v.Data = contactData{Subjects: contactSubjects}
	s.render(w, r, http.StatusOK, v)
}

type publicBrandsData struct {
	Companies []content.Company `json:"companies"`
	Search    string            `json:"search"`
	Selected  *content.Company  `json:"selected,omitempty"`
	Products  []content.Product `json:"products,omitempty"`
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "brands", "brands.title")

	records, err := b.API.GetWebCompanies(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("common.errorLoading"))
	}
	companies := content.Companies(records)
	data := publicBrandsData{
		Search:    r.URL.Query().Get("q"),
		Companies: content.SearchCompanies(companies, r.URL.Query().Get("q")),
	}

	if brandID := r.URL.Query().Get("brand"); brandID != "" {
		for i := range companies {
			if companies[i].ID == brandID {
				data.Selected = &companies[i]
				break
			}
		}
		products, err := b.API.GetWebProducts(r.Context(), brandID)
		if err != nil {
			v.Error = backend.Message(err, v.T("common.errorLoading"))
		}
		data.Products = content.Products(products)
	}
	v.Data = data
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.siteView(r, "settings", "settings.title")

	settings, err := b.API.GetWebSettings(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("settings.loadFailed"))
	}
	v.Data = content.SettingsEntries(settings)
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleNewsletterEmail(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	back := localPath(form.Get("return"), "")
	if back == "" {
		back = localPath(r.Referer(), "/")
	}

	outcome, status, message := "subscribed", http.StatusOK, ""
	env, err := b.API.CreateNewsletterEmail(r.Context(), form.Get("email"))
	switch {
	case err != nil:
		s.logger.InfoContext(r.Context(), "newsletter signup failed", "error", err)
		outcome, status, message = "failed", statusFor(err), backend.Message(err, "")
	case !env.Success:
		outcome, status, message = "failed", http.StatusUnprocessableEntity, env.Message
	}
	if wantsJSON(r) {
		payload := map[string]string{"newsletter": outcome}
		if message != "" {
			payload["message"] = message
		}
		writeJSON(w, status, payload)
		return
	}
	http.Redirect(w, r, withQuery(back, "newsletter", outcome), http.StatusSeeOther)
}
