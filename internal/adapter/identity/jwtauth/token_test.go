package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

func TestSigner_IssueAndVerify(t *testing.T) {
	s := NewSigner("test-secret")
	p := session.Principal{UserID: "u1", Name: "Abena", PhotoURL: "https://p/a.png", Email: "abena@example.com"}

	token, expires, err := s.Issue(p, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := s.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &p, got)
}

func TestSigner_Rejects(t *testing.T) {
	s := NewSigner("test-secret")
	ctx := context.Background()

	t.Run("expired", func(t *testing.T) {
		past := NewSigner("test-secret")
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue(session.Principal{UserID: "u1"}, time.Hour)
		require.NoError(t, err)

		_, err = s.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		assert.Equal(t, "Token expired", apperr.Message(err, ""))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewSigner("other").Issue(session.Principal{UserID: "u1"}, time.Hour)
		require.NoError(t, err)
		_, err = s.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.Verify(ctx, token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.Verify(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}
