package otp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/store"
)

type keyTranslator struct{}

func (keyTranslator) T(key string) string { return key }

type fakeResetAPI struct {
	sendResp   *backend.Envelope
	verifyResp *backend.Envelope
	changeResp *backend.Envelope
	err        error
	calls      []string
	lastEmail  string
	lastOTP    string
}

func (f *fakeResetAPI) SendPasswordResetOTP(_ context.Context, email string) (*backend.Envelope, error) {
	f.calls = append(f.calls, "send")
	f.lastEmail = email
	return f.sendResp, f.err
}

func (f *fakeResetAPI) VerifyPasswordResetOTP(_ context.Context, email, otp string) (*backend.Envelope, error) {
	f.calls = append(f.calls, "verify")
	f.lastEmail = email
	f.lastOTP = otp
	return f.verifyResp, f.err
}

func (f *fakeResetAPI) ChangePasswordWithOTP(_ context.Context, email, _ string) (*backend.Envelope, error) {
	f.calls = append(f.calls, "change")
	f.lastEmail = email
	return f.changeResp, f.err
}

func okEnvelope() *backend.Envelope { return &backend.Envelope{Success: true} }

func TestSanitizeCode(t *testing.T) {
	cases := map[string]string{
		"1234":          "1234",
		"12a3-4":        "1234",
		"123456":        "1234",
		" 9 8 7 6 5 4 ": "9876",
		"abcd":          "",
		"١٢٣٤":          "",
		"":              "",
		"12":            "12",
	}
	for input, expect := range cases {
		assert.Equal(t, expect, SanitizeCode(input), "input %q", input)
	}
}

func TestResetFlowHappyPathResetsToStart(t *testing.T) {
	ctx := context.Background()
	api := &fakeResetAPI{sendResp: okEnvelope(), verifyResp: okEnvelope(), changeResp: okEnvelope()}
	flow := NewResetFlow(api, keyTranslator{}, ResetToStart(), ResetState{})
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	flow.now = func() time.Time { return now }

	assert.Equal(t, StepCheckEmail, flow.State().Step)
	require.True(t, flow.CheckEmail(ctx, " a@b.com "))
	assert.Equal(t, StepVerifyOTP, flow.State().Step)
	assert.Equal(t, "a@b.com", flow.State().Email)

	require.True(t, flow.VerifyOTP(ctx, "12-34"))
	assert.Equal(t, "1234", api.lastOTP)
	assert.Equal(t, StepChangePassword, flow.State().Step)

	require.True(t, flow.ChangePassword(ctx, "secret1", "secret1"))
	assert.Equal(t, StepDone, flow.State().Step)

	redirect, settled := flow.Resolve(now.Add(time.Second))
	assert.False(t, settled)
	assert.Equal(t, 2*time.Second, flow.Remaining(now.Add(time.Second)))

	redirect, settled = flow.Resolve(now.Add(3 * time.Second))
	assert.True(t, settled)
	assert.Empty(t, redirect)
	assert.Equal(t, ResetState{Step: StepCheckEmail}, flow.State())
}

func TestResetFlowRedirectTerminal(t *testing.T) {
	ctx := context.Background()
	api := &fakeResetAPI{changeResp: okEnvelope()}
	flow := NewResetFlow(api, keyTranslator{}, RedirectTo("/customer/dashboard"), ResetState{Step: StepChangePassword, Email: "a@b.com"})
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	flow.now = func() time.Time { return now }

	require.True(t, flow.ChangePassword(ctx, "secret1", "secret1"))
	redirect, settled := flow.Resolve(now.Add(2 * time.Second))
	assert.True(t, settled)
	assert.Equal(t, "/customer/dashboard", redirect)
}

func TestChangePasswordValidatesLocally(t *testing.T) {
	ctx := context.Background()
	api := &fakeResetAPI{changeResp: okEnvelope()}
	flow := NewResetFlow(api, keyTranslator{}, ResetToStart(), ResetState{Step: StepChangePassword, Email: "a@b.com"})

	assert.False(t, flow.ChangePassword(ctx, "12345", "12345"))
	assert.Equal(t, "changePassword.passwordMinLength", flow.State().Error)

	assert.False(t, flow.ChangePassword(ctx, "secret1", "secret2"))
	assert.Equal(t, "changePassword.passwordMismatch", flow.State().Error)

	assert.Empty(t, api.calls, "backend must not be called")
	assert.Equal(t, StepChangePassword, flow.State().Step)
}

func TestVerifyOTPRequiresFourDigits(t *testing.T) {
	api := &fakeResetAPI{verifyResp: okEnvelope()}
	flow := NewResetFlow(api, keyTranslator{}, ResetToStart(), ResetState{Step: StepVerifyOTP, Email: "a@b.com"})

	assert.False(t, flow.VerifyOTP(context.Background(), "12a"))
	assert.Equal(t, "verifyOtp.invalidOtp", flow.State().Error)
	assert.Empty(t, api.calls)
}

func TestCheckEmailFailureStays(t *testing.T) {
	api := &fakeResetAPI{sendResp: &backend.Envelope{Success: false}}
	flow := NewResetFlow(api, keyTranslator{}, ResetToStart(), ResetState{})

	assert.False(t, flow.CheckEmail(context.Background(), "a@b.com"))
	assert.Equal(t, StepCheckEmail, flow.State().Step)
	assert.Equal(t, "Failed to send OTP. Please try again.", flow.State().Error)

	api.sendResp = nil
	api.err = &backend.APIError{Status: 404, Message: "Email not found"}
	assert.False(t, flow.CheckEmail(context.Background(), "a@b.com"))
	assert.Equal(t, "Email not found", flow.State().Error)

	assert.False(t, flow.CheckEmail(context.Background(), "  "))
	assert.Equal(t, "changePassword.emailRequired", flow.State().Error)
}

func TestBackNavigation(t *testing.T) {
	flow := NewResetFlow(&fakeResetAPI{}, keyTranslator{}, ResetToStart(), ResetState{Step: StepChangePassword, Email: "a@b.com"})
	flow.Back()
	assert.Equal(t, StepVerifyOTP, flow.State().Step)
	flow.Back()
	assert.Equal(t, StepCheckEmail, flow.State().Step)
}

func TestResetStatePersists(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory().Scope("b")

	state, err := LoadReset(ctx, s, store.KeyResetFlow)
	require.NoError(t, err)
	assert.Equal(t, StepCheckEmail, state.Step)

	require.NoError(t, SaveReset(ctx, s, store.KeyResetFlow, ResetState{Step: StepVerifyOTP, Email: "a@b.com"}))
	state, err = LoadReset(ctx, s, store.KeyResetFlow)
	require.NoError(t, err)
	assert.Equal(t, StepVerifyOTP, state.Step)
	assert.Equal(t, "a@b.com", state.Email)
}

func TestInvalidOTPAgainstBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid OTP"}`))
	}))
	defer server.Close()

	client := backend.New(backend.Options{BaseURL: server.URL}).Bind(store.NewMemory().Scope("b"))
	flow := NewResetFlow(client, keyTranslator{}, ResetToStart(), ResetState{Step: StepVerifyOTP, Email: "a@b.com"})

	assert.False(t, flow.VerifyOTP(context.Background(), "1234"))
	assert.Equal(t, StepVerifyOTP, flow.State().Step)
	assert.Equal(t, "Invalid OTP", flow.State().Error)
}

type fakeVerifyAPI struct {
	verifyResp *backend.Envelope
	resendResp *backend.Envelope
	err        error
	resent     []string
}

func (f *fakeVerifyAPI) VerifyEmailOTP(_ context.Context, _ string) (*backend.Envelope, error) {
	return f.verifyResp, f.err
}

func (f *fakeVerifyAPI) ResendVerificationOTP(_ context.Context, email string) (*backend.Envelope, error) {
	f.resent = append(f.resent, email)
	return f.resendResp, f.err
}

func TestEmailVerification(t *testing.T) {
	ctx := context.Background()
	api := &fakeVerifyAPI{verifyResp: &backend.Envelope{Success: true, Data: []byte(`{"email":"new@b.com"}`)}}
	v := NewEmailVerification(api, keyTranslator{}, VerifyState{})
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }
	v.SetEmail("a@b.com")

	assert.False(t, v.Verify(ctx, "12"))
	assert.Equal(t, "verifyOtp.invalidOtp", v.State().Error)

	require.True(t, v.Verify(ctx, "4321"))
	assert.Equal(t, "new@b.com", v.State().Email)

	_, done := v.Resolve(now.Add(time.Second))
	assert.False(t, done)
	redirect, done := v.Resolve(now.Add(2 * time.Second))
	assert.True(t, done)
	assert.Equal(t, "/login", redirect)
}

func TestEmailVerificationResend(t *testing.T) {
	ctx := context.Background()
	api := &fakeVerifyAPI{resendResp: &backend.Envelope{Success: true}}
	v := NewEmailVerification(api, keyTranslator{}, VerifyState{})
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	assert.False(t, v.Resend(ctx))
	assert.Equal(t, "verifyOtp.emailRequired", v.State().Error)
	assert.Empty(t, api.resent)

	v.SetEmail("a@b.com")
	require.True(t, v.Resend(ctx))
	assert.Equal(t, []string{"a@b.com"}, api.resent)
	assert.True(t, v.ShowResendNotice(now.Add(2*time.Second)))
	assert.False(t, v.ShowResendNotice(now.Add(3*time.Second)))

	api.resendResp = &backend.Envelope{Success: false}
	assert.False(t, v.Resend(ctx))
	assert.Equal(t, "verifyOtp.resendFailed", v.State().Error)
}

func TestEmailVerificationRestartsForNewEmail(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	v := NewEmailVerification(&fakeVerifyAPI{}, keyTranslator{}, VerifyState{
		Email:      "a@b.com",
		Verified:   true,
		VerifiedAt: now,
		ResentAt:   now,
		Error:      "old",
	})

	v.SetEmail("a@b.com")
	assert.True(t, v.State().Verified, "same email keeps progress")

	v.SetEmail("c@d.com")
	assert.Equal(t, VerifyState{Email: "c@d.com"}, v.State())
	_, done := v.Resolve(now.Add(time.Hour))
	assert.False(t, done)
}
