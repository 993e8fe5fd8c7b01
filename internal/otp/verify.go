package otp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/store"
)

const (
	verifiedRedirectDelay = 2 * time.Second
	resendNoticeDuration  = 3 * time.Second
)

type VerifyState struct {
	Email      string    `json:"email,omitempty"`
	Error      string    `json:"error,omitempty"`
	Verified   bool      `json:"verified,omitempty"`
	VerifiedAt time.Time `json:"verifiedAt,omitempty"`
	ResentAt   time.Time `json:"resentAt,omitempty"`
}

type VerifyAPI interface {
	VerifyEmailOTP(ctx context.Context, otp string) (*backend.Envelope, error)
	ResendVerificationOTP(ctx context.Context, email string) (*backend.Envelope, error)
}

// EmailVerification confirms a new account with the code mailed after
// signup, then sends the customer to /login.
type EmailVerification struct {
	api   VerifyAPI
	tr    Translator
	state VerifyState
	now   func() time.Time
}

func NewEmailVerification(api VerifyAPI, tr Translator, state VerifyState) *EmailVerification {
	return &EmailVerification{api: api, tr: tr, state: state, now: time.Now}
}

func LoadVerification(ctx context.Context, s store.Store) (VerifyState, error) {
	var state VerifyState
	_, err := store.GetJSON(ctx, s, store.KeyEmailVerify, &state)
	return state, err
}

func SaveVerification(ctx context.Context, s store.Store, state VerifyState) error {
	return store.SetJSON(ctx, s, store.KeyEmailVerify, state)
}

func (v *EmailVerification) State() VerifyState {
	return v.state
}

// SetEmail applies the email carried by the page query string. A different
// email starts a fresh verification.
func (v *EmailVerification) SetEmail(email string) {
	email = strings.TrimSpace(email)
	if email == "" || email == v.state.Email {
		return
	}
	v.state = VerifyState{Email: email}
}

func (v *EmailVerification) Verify(ctx context.Context, code string) bool {
	v.state.Error = ""
	code = SanitizeCode(code)
	if len(code) != CodeLength {
		v.state.Error = v.tr.T("verifyOtp.invalidOtp")
		return false
	}
	resp, err := v.api.VerifyEmailOTP(ctx, code)
	if err != nil {
		v.state.Error = backend.Message(err, v.tr.T("verifyOtp.errorOccurred"))
		return false
	}
	if !resp.Success {
		v.state.Error = orDefault(resp.Message, v.tr.T("verifyOtp.invalidCode"))
		return false
	}
	if email := responseEmail(resp); email != "" {
		v.state.Email = email
	}
	v.state.Verified = true
	v.state.VerifiedAt = v.now().UTC()
	return true
}

func (v *EmailVerification) Resend(ctx context.Context) bool {
	v.state.Error = ""
	if v.state.Email == "" {
		v.state.Error = v.tr.T("verifyOtp.emailRequired")
		return false
	}
	resp, err := v.api.ResendVerificationOTP(ctx, v.state.Email)
	if err != nil {
		v.state.Error = backend.Message(err, v.tr.T("verifyOtp.errorOccurred"))
		return false
	}
	if !resp.Success {
		v.state.Error = orDefault(resp.Message, v.tr.T("verifyOtp.resendFailed"))
		return false
	}
	v.state.ResentAt = v.now().UTC()
	return true
}

func (v *EmailVerification) ShowResendNotice(now time.Time) bool {
	return !v.state.ResentAt.IsZero() && now.Sub(v.state.ResentAt) < resendNoticeDuration
}

// Resolve returns /login once a verified account has shown its success
// state for long enough.
func (v *EmailVerification) Resolve(now time.Time) (string, bool) {
	if !v.state.Verified || now.Sub(v.state.VerifiedAt) < verifiedRedirectDelay {
		return "", false
	}
	return "/login", true
}

func responseEmail(resp *backend.Envelope) string {
	if resp.Email != "" {
		return resp.Email
	}
	if !resp.HasData() {
		return ""
	}
	var data struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return ""
	}
	return data.Email
}
