package session

import (
	"context"
	"strings"
	"time"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
)

const navAvatarSize = 32

// Session is the signed-in user as seen by pages. A nil *Session means anonymous.
type Session struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Name is the display name, else the local part of the email.
func (s *Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if at := strings.IndexByte(s.Email, '@'); at > 0 {
		return s.Email[:at]
	}
	return s.Email
}

// Avatar is the profile photo, else a generated avatar keyed by name or email.
func (s *Session) Avatar() string {
	if s.AvatarURL != "" {
		return s.AvatarURL
	}
	key := s.DisplayName
	if key == "" {
		key = s.Email
	}
	return render.AvatarURL(key, navAvatarSize)
}

type Credentials struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity is what the provider returns on sign-in and what the store persists.
type Identity struct {
	Session     Session     `json:"session"`
	Credentials Credentials `json:"credentials"`
}

// Assertion is the proof a federated flow hands to the identity provider.
type Assertion struct {
	ProviderID string
	IDToken    string
	RequestURI string
}

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignInWithAssertion(ctx context.Context, a Assertion) (*Identity, error)
	UpdateProfile(ctx context.Context, idToken, displayName string) error
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// Interaction is the user-driven half of a federated sign-in.
type Interaction interface {
	Await(ctx context.Context) (Assertion, error)
}

// Store persists identities between requests. Load returns (nil, nil) when absent.
type Store interface {
	Load(ctx context.Context, key string) (*Identity, error)
	Save(ctx context.Context, key string, id *Identity) error
	Delete(ctx context.Context, key string) error
}

type Navigator interface {
	Navigate(target string)
}

// Principal is the verified identity behind a bearer token.
type Principal struct {
	UserID   string
	Name     string
	PhotoURL string
	Email    string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}
