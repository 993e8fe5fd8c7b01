package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BrowserClaims identify one browser. They carry no customer data; the
// customer token lives in the browser's server-side store.
type BrowserClaims struct {
	BrowserID string `json:"browser_id"`
	jwt.RegisteredClaims
}

var ErrMissingBrowserID = errors.New("browser id missing")

func NewBrowserToken(secret, issuer string, ttl time.Duration, browserID string) (string, error) {
	if browserID == "" {
		return "", ErrMissingBrowserID
	}
	now := time.Now().UTC()
	claims := BrowserClaims{
		BrowserID: browserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   browserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseBrowserToken(secret, issuer, tokenString string) (*BrowserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BrowserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*BrowserClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.BrowserID == "" {
		return nil, ErrMissingBrowserID
	}
	return claims, nil
}
