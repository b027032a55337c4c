// Package jwtauth issues and verifies HMAC-signed bearer tokens for
// deployments that run without Firebase.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const issuer = "propertyhub"

type Claims struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for p valid for ttl.
func (s *Signer) Issue(p session.Principal, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	claims := &Claims{
		UserID:  p.UserID,
		Name:    p.Name,
		Picture: p.PhotoURL,
		Email:   p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("Signer.Issue: %w", err)
	}
	return signed, expires, nil
}

// Verify implements session.TokenVerifier.
func (s *Signer) Verify(_ context.Context, token string) (*session.Principal, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Missing token", nil)
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Token expired", err)
		}
		return nil, apperr.Unauthorized("Invalid token", err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, apperr.Unauthorized("Invalid token", nil)
	}
	return &session.Principal{
		UserID:   claims.UserID,
		Name:     claims.Name,
		PhotoURL: claims.Picture,
		Email:    claims.Email,
	}, nil
}
