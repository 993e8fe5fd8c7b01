package otp

import (
	"context"
	"strings"
	"time"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/store"
)

type Step string

const (
	StepCheckEmail     Step = "checkEmail"
	StepVerifyOTP      Step = "verifyOTP"
	StepChangePassword Step = "changePassword"
	StepDone           Step = "done"
)

const MinPasswordLength = 6

// Terminal decides what a finished reset does once its success delay has
// passed: start over, or navigate to Redirect.
type Terminal struct {
	Delay    time.Duration
	Redirect string
}

func ResetToStart() Terminal {
	return Terminal{Delay: 3 * time.Second}
}

func RedirectTo(path string) Terminal {
	return Terminal{Delay: 2 * time.Second, Redirect: path}
}

type ResetState struct {
	Step        Step      `json:"step"`
	Email       string    `json:"email,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

type ResetAPI interface {
	SendPasswordResetOTP(ctx context.Context, email string) (*backend.Envelope, error)
	VerifyPasswordResetOTP(ctx context.Context, email, otp string) (*backend.Envelope, error)
	ChangePasswordWithOTP(ctx context.Context, email, newPassword string) (*backend.Envelope, error)
}

// ResetFlow walks checkEmail, verifyOTP and changePassword. The login page
// and the dashboard drive the same flow with different terminals.
type ResetFlow struct {
	api      ResetAPI
	tr       Translator
	terminal Terminal
	state    ResetState
	now      func() time.Time
}

func NewResetFlow(api ResetAPI, tr Translator, terminal Terminal, state ResetState) *ResetFlow {
	if state.Step == "" {
		state.Step = StepCheckEmail
	}
	return &ResetFlow{api: api, tr: tr, terminal: terminal, state: state, now: time.Now}
}

func LoadReset(ctx context.Context, s store.Store, key string) (ResetState, error) {
	var state ResetState
	if _, err := store.GetJSON(ctx, s, key, &state); err != nil {
		return ResetState{Step: StepCheckEmail}, err
	}
	if state.Step == "" {
		state.Step = StepCheckEmail
	}
	return state, nil
}

func SaveReset(ctx context.Context, s store.Store, key string, state ResetState) error {
	return store.SetJSON(ctx, s, key, state)
}

func (f *ResetFlow) State() ResetState {
	return f.state
}

func (f *ResetFlow) Terminal() Terminal {
	return f.terminal
}

func (f *ResetFlow) fail(message string) bool {
	f.state.Error = message
	return false
}

func (f *ResetFlow) CheckEmail(ctx context.Context, email string) bool {
	f.state.Error = ""
	email = strings.TrimSpace(email)
	if email == "" {
		return f.fail(f.tr.T("changePassword.emailRequired"))
	}
	resp, err := f.api.SendPasswordResetOTP(ctx, email)
	if err != nil {
		return f.fail(backend.Message(err, "An error occurred. Please try again."))
	}
	if !resp.Success {
		return f.fail(orDefault(resp.Message, "Failed to send OTP. Please try again."))
	}
	f.state = ResetState{Step: StepVerifyOTP, Email: email}
	return true
}

func (f *ResetFlow) VerifyOTP(ctx context.Context, code string) bool {
	f.state.Error = ""
	if f.state.Step != StepVerifyOTP {
		return f.fail(f.tr.T("changePassword.checkEmailDescription"))
	}
	code = SanitizeCode(code)
	if len(code) != CodeLength {
		return f.fail(f.tr.T("verifyOtp.invalidOtp"))
	}
	resp, err := f.api.VerifyPasswordResetOTP(ctx, f.state.Email, code)
	if err != nil {
		return f.fail(backend.Message(err, "An error occurred. Please try again."))
	}
	if !resp.Success {
		return f.fail(orDefault(resp.Message, "Invalid OTP. Please try again."))
	}
	f.state.Step = StepChangePassword
	return true
}

// ChangePassword validates locally before any backend call.
func (f *ResetFlow) ChangePassword(ctx context.Context, newPassword, confirm string) bool {
	f.state.Error = ""
	if f.state.Step != StepChangePassword {
		return f.fail(f.tr.T("changePassword.verifyOTPDescription"))
	}
	if len([]rune(newPassword)) < MinPasswordLength {
		return f.fail(f.tr.T("changePassword.passwordMinLength"))
	}
	if newPassword != confirm {
		return f.fail(f.tr.T("changePassword.passwordMismatch"))
	}
	resp, err := f.api.ChangePasswordWithOTP(ctx, f.state.Email, newPassword)
	if err != nil {
		return f.fail(backend.Message(err, f.tr.T("changePassword.passwordUpdateError")))
	}
	if !resp.Success {
		return f.fail(orDefault(resp.Message, f.tr.T("changePassword.passwordUpdateError")))
	}
	f.state.Step = StepDone
	f.state.CompletedAt = f.now().UTC()
	return true
}

// Back returns to the previous step, the way the "back" links do.
func (f *ResetFlow) Back() {
	f.state.Error = ""
	switch f.state.Step {
	case StepVerifyOTP:
		f.state.Step = StepCheckEmail
	case StepChangePassword:
		f.state.Step = StepVerifyOTP
	}
}

func (f *ResetFlow) Reset() {
	f.state = ResetState{Step: StepCheckEmail}
}

// Resolve settles a finished flow once the terminal delay has elapsed. It
// reports whether the flow settled and where to navigate, if anywhere.
func (f *ResetFlow) Resolve(now time.Time) (string, bool) {
	if f.state.Step != StepDone {
		return "", false
	}
	if now.Sub(f.state.CompletedAt) < f.terminal.Delay {
		return "", false
	}
	f.Reset()
	return f.terminal.Redirect, true
}

// Remaining is the time left before a finished flow settles.
func (f *ResetFlow) Remaining(now time.Time) time.Duration {
	if f.state.Step != StepDone {
		return 0
	}
	left := f.terminal.Delay - now.Sub(f.state.CompletedAt)
	if left < 0 {
		return 0
	}
	return left
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
