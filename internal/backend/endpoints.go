package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

func decodeData(env *Envelope, out interface{}) error {
	if !env.Success || !env.HasData() {
		return &APIError{Status: http.StatusOK, Message: env.Message}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

func (c *Client) persistToken(ctx context.Context, env *Envelope) error {
	if env.Success && env.Token != "" {
		return c.SetToken(ctx, env.Token)
	}
	return nil
}

// Account

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*Envelope, error) {
	env, err := c.Request(ctx, http.MethodPost, "/signup", req, nil)
	if err != nil {
		return nil, err
	}
	if err := c.persistToken(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Envelope, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &ValidationError{Message: "Email and password are required"}
	}
	if strings.TrimSpace(password) == "" {
		return nil, &ValidationError{Message: "Password is required"}
	}
	req := LoginRequest{
		Email:       strings.TrimSpace(email),
		Password:    strings.TrimSpace(password),
		DeviceToken: strings.TrimSpace(c.deviceToken),
	}
	env, err := c.Request(ctx, http.MethodPost, "/login", req, nil)
	if err != nil {
		return nil, err
	}
	if err := c.persistToken(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.ClearToken(ctx)
}

func (c *Client) GetProfile(ctx context.Context) (*Customer, error) {
	env, err := c.Request(ctx, http.MethodGet, "/profile", nil, nil)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := decodeData(env, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdateRequest) (*Customer, error) {
	env, err := c.Request(ctx, http.MethodPut, "/profile", req, nil)
	if err != nil {
		return nil, err
	}
	var customer Customer
	if err := decodeData(env, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) DeleteAccount(ctx context.Context) (*Envelope, error) {
	env, err := c.Request(ctx, http.MethodDelete, "/account", nil, nil)
	if err != nil {
		return nil, err
	}
	if env.Success {
		if err := c.ClearToken(ctx); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// Dashboard

func (c *Client) GetTransactions(ctx context.Context) ([]Transaction, error) {
	env, err := c.Request(ctx, http.MethodGet, "/transactions", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Transaction
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	env, err := c.Request(ctx, http.MethodGet, "/products", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Product
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RedeemPoints(ctx context.Context, productID string) (*RedeemResult, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, &ValidationError{Message: "Product is required"}
	}
	env, err := c.Request(ctx, http.MethodPost, "/redeem", map[string]string{"productId": productID}, nil)
	if err != nil {
		return nil, err
	}
	var out RedeemResult
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBrands(ctx context.Context) ([]Brand, error) {
	env, err := c.Request(ctx, http.MethodGet, "/brands", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Brand
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LinkBrand(ctx context.Context, brandID string) (*LinkResult, error) {
	if strings.TrimSpace(brandID) == "" {
		return nil, &ValidationError{Message: "Brand is required"}
	}
	env, err := c.Request(ctx, http.MethodPost, "/link-brand", map[string]string{"brandId": brandID}, nil)
	if err != nil {
		return nil, err
	}
	var out LinkResult
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetLinkedBrands(ctx context.Context) ([]LinkedCompany, error) {
	env, err := c.Request(ctx, http.MethodGet, "/linked-brands", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []LinkedCompany
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBanners(ctx context.Context) ([]Banner, error) {
	env, err := c.Request(ctx, http.MethodGet, "/banners", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Banner
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConversionRate(ctx context.Context) (*ConversionRate, error) {
	env, err := c.Request(ctx, http.MethodGet, "/conversion-rate", nil, nil)
	if err != nil {
		return nil, err
	}
	var out ConversionRate
	if err := decodeData(env, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ContactSupport(ctx context.Context, req SupportRequest) (*Envelope, error) {
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Message: "Subject and message are required"}
	}
	return c.Request(ctx, http.MethodPost, "/support", req, nil)
}

// Public content. These calls never carry the customer token.

func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) (*Envelope, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Message: "Name, email and message are required"}
	}
	return c.do(ctx, http.MethodPost, "/contact", req, nil, false)
}

func (c *Client) webList(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	env, err := c.do(ctx, method, endpoint, body, nil, false)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func (c *Client) GetWebFAQs(ctx context.Context) ([]FAQ, error) {
	var out []FAQ
	if err := c.webList(ctx, http.MethodGet, "/web/faqs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWebTerms(ctx context.Context) ([]Term, error) {
	var out []Term
	if err := c.webList(ctx, http.MethodGet, "/web/terms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWebNewsletters(ctx context.Context) ([]Newsletter, error) {
	var out []Newsletter
	if err := c.webList(ctx, http.MethodGet, "/web/newsletters", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWebCompanies(ctx context.Context) ([]Brand, error) {
	var out []Brand
	if err := c.webList(ctx, http.MethodGet, "/web/companies", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWebProducts(ctx context.Context, brandID string) ([]Product, error) {
	var out []Product
	if err := c.webList(ctx, http.MethodPost, "/web/products", map[string]string{"id": brandID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWebBanners accepts {data: [...]}, {banners: [...]} or a bare array.
// Any other shape yields no banners.
func (c *Client) GetWebBanners(ctx context.Context) ([]Banner, error) {
	env, err := c.do(ctx, http.MethodGet, "/web/banners", nil, nil, false)
	if err != nil {
		return nil, err
	}
	raw := env.Raw
	switch {
	case env.HasData():
		raw = env.Data
	case len(env.Banners) > 0 && !bytes.Equal(env.Banners, []byte("null")):
		raw = env.Banners
	}
	var banners []Banner
	if err := json.Unmarshal(raw, &banners); err != nil {
		return nil, nil
	}
	return banners, nil
}

func (c *Client) GetWebSettings(ctx context.Context) (Settings, error) {
	var out Settings
	if err := c.webList(ctx, http.MethodGet, "/web", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateNewsletterEmail(ctx context.Context, email string) (*Envelope, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &ValidationError{Message: "Email is required"}
	}
	if !strings.Contains(email, "@") {
		return nil, &ValidationError{Message: "Please enter a valid email address"}
	}
	body := map[string]string{"email": email, "source": "footer"}
	return c.do(ctx, http.MethodPost, "/web/newsletter-emails", body, nil, false)
}

func (c *Client) GetSEO(ctx context.Context) (*SEO, error) {
	var out SEO
	if err := c.webList(ctx, http.MethodGet, "/web/seo", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OTP. Password reset and email verification both post to /verify-otp but
// with different bodies; they stay separate calls.

func (c *Client) SendPasswordResetOTP(ctx context.Context, email string) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, "/check-email", map[string]string{"email": email}, nil)
}

func (c *Client) VerifyPasswordResetOTP(ctx context.Context, email, otp string) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, "/verify-otp", map[string]string{"email": email, "otp": otp}, nil)
}

func (c *Client) VerifyEmailOTP(ctx context.Context, otp string) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, "/verify-otp", map[string]string{"otp": otp}, nil)
}

func (c *Client) ResendVerificationOTP(ctx context.Context, email string) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, "/check-email", map[string]string{"email": email}, nil)
}

func (c *Client) ChangePasswordWithOTP(ctx context.Context, email, newPassword string) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, "/change-password", map[string]string{"email": email, "newPassword": newPassword}, nil)
}
