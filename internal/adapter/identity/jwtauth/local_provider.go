package jwtauth

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const (
	DefaultTokenTTL   = time.Hour
	minPasswordLength = 6
)

type account struct {
	id           string
	email        string
	displayName  string
	passwordHash []byte
}

// LocalProvider is a self-contained identity provider. Accounts live in
// process and passwords are stored as bcrypt hashes.
type LocalProvider struct {
	signer   *Signer
	tokenTTL time.Duration

	mu      sync.Mutex
	byEmail map[string]*account
	byID    map[string]*account
	refresh map[string]string // refresh token -> account id
}

func NewLocalProvider(signer *Signer, tokenTTL time.Duration) *LocalProvider {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &LocalProvider{
		signer:   signer,
		tokenTTL: tokenTTL,
		byEmail:  make(map[string]*account),
		byID:     make(map[string]*account),
		refresh:  make(map[string]string),
	}
}

func (p *LocalProvider) SignUp(_ context.Context, email, password string) (*session.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Credential("Please enter a valid email address.", err)
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Credential("Password should be at least 6 characters.", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Transport("Sign-up failed. Please try again.", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[email]; exists {
		return nil, apperr.Credential("An account with this email already exists.", nil)
	}
	acc := &account{id: uuid.NewString(), email: email, passwordHash: hash}
	p.byEmail[email] = acc
	p.byID[acc.id] = acc
	return p.identityLocked(acc)
}

func (p *LocalProvider) SignIn(_ context.Context, email, password string) (*session.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p.mu.Lock()
	acc, ok := p.byEmail[email]
	p.mu.Unlock()
	if !ok {
		return nil, apperr.Credential("Incorrect email or password.", nil)
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, apperr.Credential("Incorrect email or password.", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identityLocked(acc)
}

func (p *LocalProvider) SignInWithAssertion(context.Context, session.Assertion) (*session.Identity, error) {
	return nil, apperr.Credential("Google sign-in is not available on this server.", nil)
}

func (p *LocalProvider) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	principal, err := p.signer.Verify(ctx, idToken)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.byID[principal.UserID]
	if !ok {
		return apperr.Unauthorized("Account no longer exists.", nil)
	}
	acc.displayName = strings.TrimSpace(displayName)
	return nil
}

// Refresh rotates the refresh token.
func (p *LocalProvider) Refresh(_ context.Context, refreshToken string) (session.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.refresh[refreshToken]
	if !ok {
		return session.Credentials{}, apperr.Unauthorized("Your session has expired. Please sign in again.", nil)
	}
	delete(p.refresh, refreshToken)
	acc, ok := p.byID[id]
	if !ok {
		return session.Credentials{}, apperr.Unauthorized("Account no longer exists.", nil)
	}
	identity, err := p.identityLocked(acc)
	if err != nil {
		return session.Credentials{}, err
	}
	return identity.Credentials, nil
}

func (p *LocalProvider) identityLocked(acc *account) (*session.Identity, error) {
	principal := session.Principal{UserID: acc.id, Name: acc.displayName, Email: acc.email}
	token, expires, err := p.signer.Issue(principal, p.tokenTTL)
	if err != nil {
		return nil, apperr.Transport("Sign-in failed. Please try again.", err)
	}
	refresh := uuid.NewString()
	p.refresh[refresh] = acc.id
	return &session.Identity{
		Session: session.Session{UserID: acc.id, DisplayName: acc.displayName, Email: acc.email},
		Credentials: session.Credentials{
			IDToken:      token,
			RefreshToken: refresh,
			ExpiresAt:    expires,
		},
	}, nil
}
