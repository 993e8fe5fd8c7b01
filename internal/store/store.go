package store

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	KeyToken       = "customer_token"
	KeyUser        = "customer_user"
	KeyLanguage    = "customer_language"
	KeyVerifiedAt  = "customer_verified_at"
	KeyResetFlow   = "password_reset_flow"
	KeyEmailVerify = "email_verification_flow"

	// KeyAccountResetFlow holds the change-password flow of the dashboard,
	// kept apart from the login page's forgotten-password flow.
	KeyAccountResetFlow = "account_password_flow"
)

// Store is the key/value state kept for a single browser.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Scoper hands out the Store of one browser.
type Scoper interface {
	Scope(browserID string) Store
}

var ErrNoBrowser = errors.New("browser id required")

func GetJSON(ctx context.Context, s Store, key string, out interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(data))
}
