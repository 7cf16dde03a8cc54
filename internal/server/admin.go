package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

var errBadCredentials = errors.New("invalid admin credentials")

// AdminAuth issues and validates short-lived bearer tokens for the admin
// endpoints.
type AdminAuth struct {
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewAdminAuth creates an AdminAuth with the given password and token
// signing secret.
func NewAdminAuth(password, tokenSecret string, ttl time.Duration) *AdminAuth {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &AdminAuth{
		password: password,
		secret:   []byte(tokenSecret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login checks the password and returns a signed token on success.
func (a *AdminAuth) Login(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return "", errBadCredentials
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}

	return token, nil
}

// Verify validates a bearer token issued by Login.
func (a *AdminAuth) Verify(token string) error {
	if token == "" {
		return errBadCredentials
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return fmt.Errorf("parse admin token: %w", err)
	}
	if !parsed.Valid {
		return errBadCredentials
	}

	return nil
}
