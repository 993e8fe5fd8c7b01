package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pointbox/customer-web/internal/backend"
	"pointbox/customer-web/internal/store"
)

type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseTentative       Phase = "tentative"
	PhaseConfirmed       Phase = "confirmed"
	PhaseRejected        Phase = "rejected"
)

// API is the part of the backend client the session depends on.
type API interface {
	Login(ctx context.Context, email, password string) (*backend.Envelope, error)
	GetProfile(ctx context.Context) (*backend.Customer, error)
	DeleteAccount(ctx context.Context) (*backend.Envelope, error)
	ClearToken(ctx context.Context) error
}

type LoginResult struct {
	OK                bool
	Message           string
	NeedsVerification bool
}

// Manager holds the session of one browser: an optimistic user read from
// storage that is confirmed or rejected against /profile.
type Manager struct {
	api            API
	store          store.Store
	logger         *slog.Logger
	verifyInterval time.Duration
	now            func() time.Time

	mu    sync.Mutex
	phase Phase
	user  *User
}

func NewManager(api API, s store.Store, logger *slog.Logger, verifyInterval time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:            api,
		store:          s,
		logger:         logger,
		verifyInterval: verifyInterval,
		now:            time.Now,
		phase:          PhaseUnauthenticated,
	}
}

func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	copied := *m.user
	return &copied
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil && (m.phase == PhaseTentative || m.phase == PhaseConfirmed)
}

// Load seeds the tentative user from storage without calling the backend.
func (m *Manager) Load(ctx context.Context) {
	var user User
	ok, err := store.GetJSON(ctx, m.store, store.KeyUser, &user)
	if err != nil {
		m.logger.WarnContext(ctx, "stored user unreadable", "error", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok && err == nil {
		m.user = &user
		m.phase = PhaseTentative
		return
	}
	m.user = nil
	m.phase = PhaseUnauthenticated
}

// Restore runs the verification step. Without a token the stored user is
// dropped. With one, /profile decides between confirmed and rejected.
func (m *Manager) Restore(ctx context.Context) Phase {
	token, _, err := m.store.Get(ctx, store.KeyToken)
	if err != nil {
		m.logger.ErrorContext(ctx, "session restore failed", "error", err)
		m.mu.Lock()
		m.user = nil
		m.phase = PhaseUnauthenticated
		m.mu.Unlock()
		return PhaseUnauthenticated
	}
	if token == "" {
		if err := m.store.Delete(ctx, store.KeyUser, store.KeyVerifiedAt); err != nil {
			m.logger.WarnContext(ctx, "clear stored user failed", "error", err)
		}
		m.mu.Lock()
		m.user = nil
		m.phase = PhaseUnauthenticated
		m.mu.Unlock()
		return PhaseUnauthenticated
	}

	m.Load(ctx)
	if m.recentlyVerified(ctx) {
		m.mu.Lock()
		m.phase = PhaseConfirmed
		m.mu.Unlock()
		return PhaseConfirmed
	}

	customer, err := m.api.GetProfile(ctx)
	if err != nil {
		m.logger.InfoContext(ctx, "session verification failed", "error", err)
		return m.reject(ctx)
	}
	user := FromCustomer(*customer)
	m.confirm(ctx, user)
	return PhaseConfirmed
}

func (m *Manager) recentlyVerified(ctx context.Context) bool {
	if m.verifyInterval <= 0 {
		return false
	}
	m.mu.Lock()
	hasUser := m.user != nil
	m.mu.Unlock()
	if !hasUser {
		return false
	}
	raw, ok, err := m.store.Get(ctx, store.KeyVerifiedAt)
	if err != nil || !ok {
		return false
	}
	verifiedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false
	}
	return m.now().Sub(verifiedAt) < m.verifyInterval
}

func (m *Manager) confirm(ctx context.Context, user User) {
	if err := store.SetJSON(ctx, m.store, store.KeyUser, user); err != nil {
		m.logger.WarnContext(ctx, "persist user failed", "error", err)
	}
	if err := m.store.Set(ctx, store.KeyVerifiedAt, m.now().UTC().Format(time.RFC3339Nano)); err != nil {
		m.logger.WarnContext(ctx, "persist verification time failed", "error", err)
	}
	m.mu.Lock()
	m.user = &user
	m.phase = PhaseConfirmed
	m.mu.Unlock()
}

func (m *Manager) reject(ctx context.Context) Phase {
	m.clear(ctx)
	m.mu.Lock()
	m.phase = PhaseRejected
	m.mu.Unlock()
	return PhaseRejected
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.api.ClearToken(ctx); err != nil {
		m.logger.WarnContext(ctx, "clear token failed", "error", err)
	}
	if err := m.store.Delete(ctx, store.KeyToken, store.KeyUser, store.KeyVerifiedAt); err != nil {
		m.logger.WarnContext(ctx, "clear session failed", "error", err)
	}
	m.mu.Lock()
	m.user = nil
	m.phase = PhaseUnauthenticated
	m.mu.Unlock()
}

func (m *Manager) Login(ctx context.Context, email, password string) bool {
	return m.LoginResult(ctx, email, password).OK
}

// LoginResult never fails: every problem is reported through the result.
func (m *Manager) LoginResult(ctx context.Context, email, password string) LoginResult {
	env, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.logger.InfoContext(ctx, "login failed", "error", err)
		return failedLogin(backend.Message(err, "An error occurred. Please try again."))
	}
	if !env.Success || env.Token == "" || env.User == nil {
		message := env.Message
		if message == "" {
			message = "Invalid email or password"
		}
		return failedLogin(message)
	}

	var user User
	customer, err := m.api.GetProfile(ctx)
	if err == nil {
		user = FromCustomer(*customer)
	} else {
		m.logger.WarnContext(ctx, "profile after login failed", "error", err)
		user = fromLoginUser(*env.User, m.now())
	}
	m.confirm(ctx, user)
	return LoginResult{OK: true}
}

func failedLogin(message string) LoginResult {
	lower := strings.ToLower(message)
	return LoginResult{
		Message:           message,
		NeedsVerification: strings.Contains(lower, "verify your email") || strings.Contains(lower, "email verification"),
	}
}

func (m *Manager) Logout(ctx context.Context) {
	m.clear(ctx)
}

// DeleteAccount asks the backend to delete the account and clears the local
// session whatever the outcome.
func (m *Manager) DeleteAccount(ctx context.Context) {
	if m.User() == nil {
		return
	}
	if _, err := m.api.DeleteAccount(ctx); err != nil {
		m.logger.WarnContext(ctx, "account deletion failed", "error", err)
	}
	m.clear(ctx)
}

// UpdateUser merges p into the current user. Without a current user the
// patch is only accepted when it carries an id.
func (m *Manager) UpdateUser(ctx context.Context, p Patch) {
	m.mu.Lock()
	current := m.user
	m.mu.Unlock()
	if current == nil && (p.ID == nil || *p.ID == "") {
		return
	}
	var base User
	if current != nil {
		base = *current
	}
	updated := base.apply(p)
	if err := store.SetJSON(ctx, m.store, store.KeyUser, updated); err != nil {
		m.logger.WarnContext(ctx, "persist user failed", "error", err)
	}
	m.mu.Lock()
	m.user = &updated
	if m.phase == PhaseUnauthenticated || m.phase == PhaseRejected {
		m.phase = PhaseTentative
	}
	m.mu.Unlock()
}
