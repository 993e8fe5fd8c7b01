package http

import (
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/content"
	"pointbox/customer-web/internal/otp"
	"pointbox/customer-web/internal/store"
)

var signupCountries = []string{
	"UAE", "Saudi Arabia", "Qatar", "Kuwait", "Bahrain", "Oman",
	"Jordan", "Lebanon", "Egypt", "Iraq", "Syria",
}

type loginData struct {
	Email string `json:"email"`
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	if b.Session.IsAuthenticated() {
		http.Redirect(w, r, "/customer/dashboard", http.StatusFound)
		return
	}
	v := s.newView(r, layoutAuth, "login", "auth.loginTitle")
	v.Data = loginData{Email: r.URL.Query().Get("email")}
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	email := strings.TrimSpace(form.Get("email"))

	result := b.Session.LoginResult(r.Context(), email, form.Get("password"))
	switch {
	case result.OK:
		s.seeOther(w, r, "/customer/dashboard")
	case result.NeedsVerification:
		s.seeOther(w, r, "/verify-otp?email="+url.QueryEscape(email))
	default:
		v := s.newView(r, layoutAuth, "login", "auth.loginTitle")
		v.Error = result.Message
		v.Data = loginData{Email: email}
		s.render(w, r, http.StatusUnauthorized, v)
	}
}

type resetData struct {
	Step   otp.Step `json:"step"`
	Email  string   `json:"email,omitempty"`
	Action string   `json:"action"`
}

// loadResetFlow restores the password flow kept under key. An unreadable
// state starts the flow over.
func (s *Server) loadResetFlow(r *http.Request, key string, terminal otp.Terminal) *otp.ResetFlow {
	b := browserFromContext(r.Context())
	state, err := otp.LoadReset(r.Context(), b.Store, key)
	if err != nil {
		s.logger.WarnContext(r.Context(), "reset flow unreadable", "error", err)
	}
	return otp.NewResetFlow(b.API, b.Lang, terminal, state)
}

func (s *Server) saveResetFlow(r *http.Request, key string, flow *otp.ResetFlow) {
	b := browserFromContext(r.Context())
	if err := otp.SaveReset(r.Context(), b.Store, key, flow.State()); err != nil {
		s.logger.WarnContext(r.Context(), "persist reset flow failed", "error", err)
	}
}

// applyResetAction runs one submitted step of the flow.
func applyResetAction(r *http.Request, flow *otp.ResetFlow, form url.Values) {
	switch form.Get("action") {
	case "send":
		flow.CheckEmail(r.Context(), form.Get("email"))
	case "verify":
		flow.VerifyOTP(r.Context(), form.Get("otp"))
	case "change":
		flow.ChangePassword(r.Context(), form.Get("newPassword"), form.Get("confirmPassword"))
	case "back":
		flow.Back()
	case "cancel":
		flow.Reset()
	}
}

// showResetFlow renders the current step. A finished flow carries a refresh
// that brings the browser back once the success message has been shown.
// prefill is offered as the email while the first step is still empty.
func (s *Server) showResetFlow(w http.ResponseWriter, r *http.Request, v *view, flow *otp.ResetFlow, action, prefill string) {
	state := flow.State()
	email := state.Email
	if email == "" && state.Step == otp.StepCheckEmail {
		email = prefill
	}
	v.Error = state.Error
	if state.Step == otp.StepDone {
		v.Notice = v.T("changePassword.passwordUpdatedMessage")
		v.Refresh = &refresh{
			Seconds: int(math.Ceil(flow.Remaining(s.now()).Seconds())),
			URL:     action,
		}
	}
	v.Data = resetData{Step: state.Step, Email: email, Action: action}
	status := http.StatusOK
	if state.Error != "" {
		status = http.StatusBadRequest
	}
	s.render(w, r, status, v)
}

func (s *Server) handleLoginReset(w http.ResponseWriter, r *http.Request) {
	flow := s.loadResetFlow(r, store.KeyResetFlow, otp.ResetToStart())
	if _, settled := flow.Resolve(s.now()); settled {
		s.saveResetFlow(r, store.KeyResetFlow, flow)
	}
	v := s.newView(r, layoutAuth, "reset", "changePassword.changePassword")
	s.showResetFlow(w, r, v, flow, "/login/reset", "")
}

func (s *Server) handleLoginResetSubmit(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	flow := s.loadResetFlow(r, store.KeyResetFlow, otp.ResetToStart())
	flow.Resolve(s.now())
	applyResetAction(r, flow, form)
	s.saveResetFlow(r, store.KeyResetFlow, flow)

	v := s.newView(r, layoutAuth, "reset", "changePassword.changePassword")
	s.showResetFlow(w, r, v, flow, "/login/reset", "")
}

type signupData struct {
	Form      signupForm     `json:"form"`
	Countries []string       `json:"countries"`
	Terms     []content.Term `json:"terms"`
}

type signupForm struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Country     string `json:"country"`
	AcceptTerms bool   `json:"acceptTerms"`
}

func (s *Server) signupData(r *http.Request, form signupForm) signupData {
	b := browserFromContext(r.Context())
	terms, err := b.API.GetWebTerms(r.Context())
	if err != nil {
		s.logger.InfoContext(r.Context(), "signup terms unavailable", "error", err)
	}
	return signupData{Form: form, Countries: signupCountries, Terms: content.Terms(terms)}
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	v := s.newView(r, layoutAuth, "signup", "auth.signupTitle")
	v.Data = s.signupData(r, signupForm{})
	s.render(w, r, http.StatusOK, v)
}

// handleSignup checks the terms box, then the confirmation, then the
// password length, and only then calls the backend.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	values, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	form := signupForm{
		FullName:    strings.TrimSpace(values.Get("fullName")),
		Email:       strings.TrimSpace(values.Get("email")),
		PhoneNumber: strings.TrimSpace(values.Get("phoneNumber")),
		Address:     strings.TrimSpace(values.Get("address")),
		Country:     values.Get("country"),
		AcceptTerms: values.Get("acceptTerms") == "true" || values.Get("acceptTerms") == "on",
	}
	password := values.Get("password")

	v := s.newView(r, layoutAuth, "signup", "auth.signupTitle")
	fail := func(status int, message string) {
		v.Error = message
		v.Data = s.signupData(r, form)
		s.render(w, r, status, v)
	}

	switch {
	case !form.AcceptTerms:
		fail(http.StatusBadRequest, v.T("auth.termsNotAccepted"))
		return
	case password != values.Get("confirmPassword"):
		fail(http.StatusBadRequest, v.T("auth.passwordsDoNotMatch"))
		return
	case len([]rune(password)) < otp.MinPasswordLength:
		fail(http.StatusBadRequest, v.T("auth.passwordTooShort"))
		return
	}

	env, err := b.API.Signup(r.Context(), backend.SignupRequest{
		Username: form.FullName,
		Email:    form.Email,
		Password: password,
		Phone:    form.PhoneNumber,
		Address:  form.Address,
		Country:  form.Country,
	})
	if err != nil {
		fail(statusFor(err), backend.Message(err, v.T("auth.signupFailed")))
		return
	}
	if !env.Success {
		message := env.Message
		if message == "" {
			message = v.T("auth.signupFailed")
		}
		fail(http.StatusUnprocessableEntity, message)
		return
	}
	s.seeOther(w, r, "/verify-otp?email="+url.QueryEscape(form.Email))
}

type verifyData struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

func (s *Server) loadVerification(r *http.Request) *otp.EmailVerification {
	b := browserFromContext(r.Context())
	state, err := otp.LoadVerification(r.Context(), b.Store)
	if err != nil {
		s.logger.WarnContext(r.Context(), "verification state unreadable", "error", err)
	}
	flow := otp.NewEmailVerification(b.API, b.Lang, state)
	flow.SetEmail(r.URL.Query().Get("email"))
	return flow
}

func (s *Server) saveVerification(r *http.Request, flow *otp.EmailVerification) {
	b := browserFromContext(r.Context())
	if err := otp.SaveVerification(r.Context(), b.Store, flow.State()); err != nil {
		s.logger.WarnContext(r.Context(), "persist verification failed", "error", err)
	}
}

func (s *Server) showVerification(w http.ResponseWriter, r *http.Request, flow *otp.EmailVerification) {
	now := s.now()
	state := flow.State()
	v := s.newView(r, layoutAuth, "verify_otp", "verifyOtp.title")
	v.Error = state.Error
	switch {
	case state.Verified:
		v.Notice = v.T("verifyOtp.accountVerified") + " " + v.T("verifyOtp.redirecting")
		left := 2*time.Second - now.Sub(state.VerifiedAt)
		v.Refresh = &refresh{Seconds: int(math.Ceil(math.Max(left.Seconds(), 0))), URL: "/verify-otp"}
	case flow.ShowResendNotice(now):
		v.Notice = v.T("verifyOtp.resendSuccess")
	}
	v.Data = verifyData{Email: state.Email, Verified: state.Verified}
	status := http.StatusOK
	if state.Error != "" {
		status = http.StatusBadRequest
	}
	s.render(w, r, status, v)
}

func (s *Server) handleVerifyPage(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	flow := s.loadVerification(r)
	if target, ok := flow.Resolve(s.now()); ok {
		if err := b.Store.Delete(r.Context(), store.KeyEmailVerify); err != nil {
			s.logger.WarnContext(r.Context(), "clear verification failed", "error", err)
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	s.saveVerification(r, flow)
	s.showVerification(w, r, flow)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	flow := s.loadVerification(r)
	flow.SetEmail(form.Get("email"))
	flow.Verify(r.Context(), form.Get("otp"))
	s.saveVerification(r, flow)
	s.showVerification(w, r, flow)
}

func (s *Server) handleVerifyResend(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	flow := s.loadVerification(r)
	flow.SetEmail(form.Get("email"))
	flow.Resend(r.Context())
	s.saveVerification(r, flow)
	s.showVerification(w, r, flow)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	b.Session.Logout(r.Context())
	s.seeOther(w, r, "/")
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := b.Lang.SetLanguage(r.Context(), form.Get("lang")); err != nil {
		writeError(w, http.StatusBadRequest, "unsupported_language")
		return
	}
	back := localPath(form.Get("return"), "")
	if back == "" {
		back = localPath(r.Referer(), "/")
	}
	s.seeOther(w, r, back)
}
