package firebaseid

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Verifier checks Firebase ID tokens presented as bearer tokens.
type Verifier struct {
	client idTokenVerifier
}

func NewVerifier(client *auth.Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*session.Principal, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Missing token", nil)
	}
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token", err)
	}
	return &session.Principal{
		UserID:   decoded.UID,
		Name:     claimString(decoded.Claims, "name"),
		PhotoURL: claimString(decoded.Claims, "picture"),
		Email:    claimString(decoded.Claims, "email"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}
