package http

import (
	"net/http"
	"strings"
	"time"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/content"
	"pointbox/customer-web/internal/dashboard"
	"pointbox/customer-web/internal/otp"
	"pointbox/customer-web/internal/session"
	"pointbox/customer-web/internal/store"
)

const recentTransactionCount = 5

func (s *Server) dashboardView(r *http.Request, page, titleKey string) *view {
	return s.newView(r, layoutDashboard, page, titleKey)
}

type tierView struct {
	dashboard.Tier
	Percent    float64 `json:"progress"`
	PointsLeft float64 `json:"remaining"`
}

func newTierView(points float64) tierView {
	tier := dashboard.TierFor(points)
	return tierView{Tier: tier, Percent: tier.Progress(points), PointsLeft: tier.Remaining(points)}
}

type dashboardData struct {
	Stats  dashboard.Stats         `json:"stats"`
	Tier   tierView                `json:"tier"`
	Recent []dashboard.Transaction `json:"recent"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	user := b.Session.User()
	v := s.dashboardView(r, "dashboard", "sidebar.dashboard")

	records, err := b.API.GetTransactions(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("common.errorLoading"))
	}
	txns := dashboard.Transactions(records)
	recent := txns
	if len(recent) > recentTransactionCount {
		recent = recent[:recentTransactionCount]
	}
	v.Data = dashboardData{
		Stats:  dashboard.NewStats(user.Points, user.LinkedBrands, len(txns)),
		Tier:   newTierView(user.Points),
		Recent: recent,
	}
	s.render(w, r, http.StatusOK, v)
}

type redeemData struct {
	Points   float64             `json:"points"`
	Search   string              `json:"search"`
	Products []dashboard.Product `json:"products"`
	Coupon   string              `json:"coupon,omitempty"`
}

func (s *Server) redeemData(r *http.Request, v *view, search string) ([]dashboard.Product, redeemData) {
	b := browserFromContext(r.Context())
	records, err := b.API.GetProducts(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("common.errorLoading"))
	}
	products := dashboard.Products(records)
	return products, redeemData{
		Points:   b.Session.User().Points,
		Search:   search,
		Products: dashboard.SearchProducts(products, search),
	}
}

func (s *Server) handleRedeemPage(w http.ResponseWriter, r *http.Request) {
	v := s.dashboardView(r, "redeem", "redeem.title")
	_, data := s.redeemData(r, v, r.URL.Query().Get("q"))
	v.Data = data
	s.render(w, r, http.StatusOK, v)
}

// handleRedeem refuses rewards the balance cannot cover before asking the
// backend, then takes the new balance from the response.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	v := s.dashboardView(r, "redeem", "redeem.title")
	products, data := s.redeemData(r, v, form.Get("q"))

	status := http.StatusOK
	product, found := dashboard.FindProduct(products, form.Get("productId"))
	switch {
	case !found:
		v.Error = v.T("redeem.redeemFailed")
		status = http.StatusNotFound
	case !product.Affordable(data.Points):
		v.Error = v.T("redeem.insufficientPoints")
		status = http.StatusBadRequest
	default:
		result, err := b.API.RedeemPoints(r.Context(), product.ID)
		if err != nil {
			v.Error = backend.Message(err, v.T("redeem.redeemFailed"))
			status = statusFor(err)
			break
		}
		remaining := result.RemainingPoints
		b.Session.UpdateUser(r.Context(), session.Patch{Points: &remaining})
		v.User = b.Session.User()
		v.Notice = v.T("redeem.redeemed")
		data.Points = remaining
		data.Coupon = product.CouponCode
		if result.Product.CouponCode != "" {
			data.Coupon = result.Product.CouponCode
		}
	}
	v.Data = data
	s.render(w, r, status, v)
}

type profileData struct {
	Profile      session.User            `json:"profile"`
	Address      string                  `json:"address,omitempty"`
	Country      string                  `json:"country,omitempty"`
	Tier         tierView                `json:"tier"`
	LinkedBrands []dashboard.LinkedBrand `json:"linkedBrands"`
	Countries    []string                `json:"countries"`
	Editing      bool                    `json:"editing"`
}

// profileData prefers the backend profile and falls back to the session
// user when it cannot be loaded.
func (s *Server) profileData(r *http.Request) profileData {
	b := browserFromContext(r.Context())
	user := *b.Session.User()
	data := profileData{Profile: user, Countries: signupCountries}

	customer, err := b.API.GetProfile(r.Context())
	if err != nil {
		s.logger.InfoContext(r.Context(), "profile unavailable", "error", err)
	} else {
		data.Profile = session.FromCustomer(*customer)
		data.Address = customer.Address
		data.Country = customer.Country
		data.LinkedBrands = dashboard.LinkedBrands(customer.LinkedCompanies)
	}
	data.Tier = newTierView(data.Profile.Points)
	return data
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	v := s.dashboardView(r, "profile", "profile.title")
	data := s.profileData(r)
	data.Editing = r.URL.Query().Get("edit") == "1"
	v.Data = data
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	v := s.dashboardView(r, "profile", "profile.title")

	customer, err := b.API.UpdateProfile(r.Context(), backend.ProfileUpdateRequest{
		Username: strings.TrimSpace(form.Get("fullName")),
		Email:    strings.TrimSpace(form.Get("email")),
		Phone:    strings.TrimSpace(form.Get("phoneNumber")),
		Address:  strings.TrimSpace(form.Get("address")),
		Country:  form.Get("country"),
	})
	if err != nil {
		data := s.profileData(r)
		data.Editing = true
		v.Error = backend.Message(err, v.T("profile.updateFailed"))
		v.Data = data
		s.render(w, r, statusFor(err), v)
		return
	}

	updated := session.FromCustomer(*customer)
	b.Session.UpdateUser(r.Context(), session.Patch{
		Email:        &updated.Email,
		FullName:     &updated.FullName,
		PhoneNumber:  &updated.PhoneNumber,
		Points:       &updated.Points,
		LinkedBrands: updated.LinkedBrands,
	})
	v.User = b.Session.User()
	v.Notice = v.T("profile.updated")
	v.Data = profileData{
		Profile:      *v.User,
		Address:      customer.Address,
		Country:      customer.Country,
		Tier:         newTierView(v.User.Points),
		LinkedBrands: dashboard.LinkedBrands(customer.LinkedCompanies),
		Countries:    signupCountries,
	}
	s.render(w, r, http.StatusOK, v)
}

type customerBrandsData struct {
	Brands []dashboard.Brand `json:"brands"`
	Filter string            `json:"filter"`
	Search string            `json:"search"`
}

func (s *Server) showCustomerBrands(w http.ResponseWriter, r *http.Request, v *view, status int, filter, search string) {
	b := browserFromContext(r.Context())
	records, err := b.API.GetBrands(r.Context())
	if err != nil && v.Error == "" {
		v.Error = backend.Message(err, v.T("common.errorLoading"))
	}
	if filter == "" {
		filter = dashboard.LinkFilterAll
	}
	brands := dashboard.Brands(records, b.Session.User().LinkedBrands)
	v.Data = customerBrandsData{
		Brands: dashboard.FilterBrands(brands, filter, search),
		Filter: filter,
		Search: search,
	}
	s.render(w, r, status, v)
}

func (s *Server) handleCustomerBrands(w http.ResponseWriter, r *http.Request) {
	v := s.dashboardView(r, "customer_brands", "brands.title")
	query := r.URL.Query()
	s.showCustomerBrands(w, r, v, http.StatusOK, query.Get("filter"), query.Get("q"))
}

// handleLinkBrand links a brand and folds the new link list and balance
// into the session user.
func (s *Server) handleLinkBrand(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	brandID := form.Get("brandId")
	result, err := b.API.LinkBrand(r.Context(), brandID)
	if err != nil {
		v := s.dashboardView(r, "customer_brands", "brands.title")
		v.Error = backend.Message(err, v.T("brands.linkFailed"))
		s.showCustomerBrands(w, r, v, statusFor(err), form.Get("filter"), form.Get("q"))
		return
	}

	user := b.Session.User()
	linked := result.LinkedBrands
	if len(linked) == 0 {
		linked = append([]string(nil), user.LinkedBrands...)
		if !user.HasBrand(brandID) {
			linked = append(linked, brandID)
		}
	}
	points := dashboard.LinkPoints(user.Points, result)
	b.Session.UpdateUser(r.Context(), session.Patch{LinkedBrands: linked, Points: &points})

	target := "/customer/brands"
	if filter := form.Get("filter"); filter != "" {
		target = withQuery(target, "filter", filter)
	}
	s.seeOther(w, r, target)
}

func (s *Server) handleCustomerBanners(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	v := s.dashboardView(r, "banners", "banners.title")
	records, err := b.API.GetBanners(r.Context())
	if err != nil {
		v.Error = backend.Message(err, v.T("common.errorLoading"))
	}
	v.Data = content.CustomerBanners(records, s.now())
	s.render(w, r, http.StatusOK, v)
}

type transactionsData struct {
	Transactions []dashboard.Transaction `json:"transactions"`
	Type         string                  `json:"type"`
	Search       string                  `json:"search"`
	Selected     *dashboard.Transaction  `json:"selected,omitempty"`
	ExportURL    string                  `json:"exportUrl"`
}

func (s *Server) loadTransactions(r *http.Request) ([]dashboard.Transaction, error) {
	b := browserFromContext(r.Context())
	records, err := b.API.GetTransactions(r.Context())
	if err != nil {
		return nil, err
	}
	query := r.URL.Query()
	return dashboard.FilterTransactions(dashboard.Transactions(records), query.Get("type"), query.Get("q")), nil
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	v := s.dashboardView(r, "transactions", "transactions.title")
	txns, err := s.loadTransactions(r)
	if err != nil {
		v.Error = backend.Message(err, v.T("common.errorLoading"))
	}

	query := r.URL.Query()
	kind := query.Get("type")
	if kind == "" {
		kind = "all"
	}
	data := transactionsData{
		Transactions: txns,
		Type:         kind,
		Search:       query.Get("q"),
		ExportURL:    "/customer/transactions.csv",
	}
	if r.URL.RawQuery != "" {
		data.ExportURL += "?" + r.URL.RawQuery
	}
	if id := query.Get("invoice"); id != "" {
		if txn, ok := dashboard.FindTransaction(txns, id); ok {
			data.Selected = &txn
		}
	}
	v.Data = data
	s.render(w, r, http.StatusOK, v)
}

func (s *Server) handleTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	txns, err := s.loadTransactions(r)
	if err != nil {
		s.logger.WarnContext(r.Context(), "transactions export failed", "error", err)
		writeError(w, statusFor(err), "export_failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dashboard.CSVFilename(s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := dashboard.WriteCSV(w, txns, time.Local); err != nil {
		s.logger.WarnContext(r.Context(), "write export failed", "error", err)
	}
}

type supportData struct {
	Brands []dashboard.Brand      `json:"brands"`
	Form   backend.SupportRequest `json:"form"`
}

func (s *Server) showSupport(w http.ResponseWriter, r *http.Request, v *view, status int, form backend.SupportRequest) {
	b := browserFromContext(r.Context())
	records, err := b.API.GetBrands(r.Context())
	if err != nil {
		s.logger.InfoContext(r.Context(), "support brands unavailable", "error", err)
	}
	v.Data = supportData{Brands: dashboard.Brands(records, b.Session.User().LinkedBrands), Form: form}
	s.render(w, r, status, v)
}

func (s *Server) handleSupport(w http.ResponseWriter, r *http.Request) {
	v := s.dashboardView(r, "support", "support.title")
	s.showSupport(w, r, v, http.StatusOK, backend.SupportRequest{
		TransactionID: r.URL.Query().Get("transaction"),
		BrandID:       r.URL.Query().Get("brand"),
	})
}

func (s *Server) handleSupportSubmit(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req := backend.SupportRequest{
		Subject:       strings.TrimSpace(form.Get("subject")),
		Message:       strings.TrimSpace(form.Get("message")),
		TransactionID: form.Get("transactionId"),
		BrandID:       form.Get("brandId"),
	}
	v := s.dashboardView(r, "support", "support.title")

	env, err := b.API.ContactSupport(r.Context(), req)
	switch {
	case err != nil:
		v.Error = backend.Message(err, v.T("support.sendError"))
		s.showSupport(w, r, v, statusFor(err), req)
	case !env.Success:
		v.Error = env.Message
		if v.Error == "" {
			v.Error = v.T("support.sendError")
		}
		s.showSupport(w, r, v, http.StatusUnprocessableEntity, req)
	default:
		v.Notice = v.T("support.sendSuccess")
		s.showSupport(w, r, v, http.StatusOK, backend.SupportRequest{})
	}
}

func accountResetTerminal() otp.Terminal {
	return otp.RedirectTo("/customer/dashboard")
}

// ownEmail offers the customer's own address on the first step.
func ownEmail(v *view) string {
	if v.User == nil {
		return ""
	}
	return v.User.Email
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	flow := s.loadResetFlow(r, store.KeyAccountResetFlow, accountResetTerminal())
	if target, settled := flow.Resolve(s.now()); settled {
		s.saveResetFlow(r, store.KeyAccountResetFlow, flow)
		if target != "" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}
	v := s.dashboardView(r, "change_password", "changePassword.changePassword")
	s.showResetFlow(w, r, v, flow, "/customer/change-password", ownEmail(v))
}

func (s *Server) handleChangePasswordSubmit(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	flow := s.loadResetFlow(r, store.KeyAccountResetFlow, accountResetTerminal())
	flow.Resolve(s.now())
	applyResetAction(r, flow, form)
	s.saveResetFlow(r, store.KeyAccountResetFlow, flow)

	v := s.dashboardView(r, "change_password", "changePassword.changePassword")
	s.showResetFlow(w, r, v, flow, "/customer/change-password", ownEmail(v))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	b := browserFromContext(r.Context())
	b.Session.DeleteAccount(r.Context())
	s.seeOther(w, r, "/login")
}
