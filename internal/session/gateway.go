package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

// ErrRedirected is returned by RequireSession after it navigated away.
// Callers must stop the flow without reporting anything.
var ErrRedirected = errors.New("session required: navigated to sign-in")

const refreshLeeway = time.Minute

// Gateway owns one browser session's identity state. Other components read it
// through Observe and RequireSession and change it only through the login and
// logout operations.
type Gateway struct {
	provider IdentityProvider
	store    Store
	key      string
	logger   *zap.Logger

	// notify orders deliveries so no observer sees an older state after a newer one.
	// It is taken before mu. Handlers must not call back into the gateway.
	notify    sync.Mutex
	mu        sync.Mutex
	resolved  bool
	current   *Identity
	observers map[uint64]func(*Session)
	nextID    uint64
}

// NewGateway builds an unresolved gateway. key names the persisted session; an
// empty key or nil store disables persistence.
func NewGateway(provider IdentityProvider, store Store, key string, logger *zap.Logger) *Gateway {
	return &Gateway{
		provider:  provider,
		store:     store,
		key:       key,
		logger:    logger.Named("SessionGateway"),
		observers: make(map[uint64]func(*Session)),
	}
}

// Restore loads the persisted session, if any, and resolves the gateway.
// A store failure resolves to anonymous.
func (g *Gateway) Restore(ctx context.Context) error {
	var id *Identity
	var loadErr error
	if g.store != nil && g.key != "" {
		id, loadErr = g.store.Load(ctx, g.key)
		if loadErr != nil {
			g.logger.Warn("failed to load persisted session", zap.Error(loadErr))
			id = nil
		}
	}
	g.transition(id)
	return loadErr
}

// Observe calls fn with the current state now, if resolved, and after every change.
func (g *Gateway) Observe(fn func(*Session)) domain.Subscription {
	g.notify.Lock()
	defer g.notify.Unlock()

	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.observers[id] = fn
	resolved := g.resolved
	current := snapshot(g.current)
	g.mu.Unlock()

	if resolved {
		fn(current)
	}
	return domain.NewSubscription(func() {
		g.mu.Lock()
		delete(g.observers, id)
		g.mu.Unlock()
	})
}

// Current returns the session and whether the gateway has resolved.
func (g *Gateway) Current() (*Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return snapshot(g.current), g.resolved
}

func (g *Gateway) RegisterWithPassword(ctx context.Context, displayName, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Credential("Email and password are required.", nil)
	}
	id, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(displayName); name != "" {
		if err := g.provider.UpdateProfile(ctx, id.Credentials.IDToken, name); err != nil {
			g.logger.Warn("account created but display name not saved", zap.String("user_id", id.Session.UserID), zap.Error(err))
		} else {
			id.Session.DisplayName = name
		}
	}
	g.establish(ctx, id)
	return snapshot(id), nil
}

func (g *Gateway) LoginWithPassword(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Credential("Email and password are required.", nil)
	}
	id, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.establish(ctx, id)
	return snapshot(id), nil
}

// LoginFederated completes a federated sign-in once the interaction yields an assertion.
func (g *Gateway) LoginFederated(ctx context.Context, in Interaction) (*Session, error) {
	assertion, err := in.Await(ctx)
	if err != nil {
		return nil, err
	}
	id, err := g.provider.SignInWithAssertion(ctx, assertion)
	if err != nil {
		return nil, err
	}
	g.establish(ctx, id)
	return snapshot(id), nil
}

// Logout clears the session. Calling it while anonymous is a no-op.
func (g *Gateway) Logout(ctx context.Context) error {
	if g.store != nil && g.key != "" {
		if err := g.store.Delete(ctx, g.key); err != nil {
			g.logger.Warn("failed to delete persisted session", zap.Error(err))
		}
	}
	g.transition(nil)
	return nil
}

// RequireSession waits for the first resolved state. When it is anonymous the
// navigator is sent to target and ErrRedirected is returned.
func (g *Gateway) RequireSession(ctx context.Context, nav Navigator, target string) (*Session, error) {
	first := make(chan *Session, 1)
	sub := g.Observe(func(s *Session) {
		select {
		case first <- s:
		default:
		}
	})
	defer sub.Close()

	select {
	case s := <-first:
		if s == nil {
			nav.Navigate(target)
			return nil, ErrRedirected
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Token returns a bearer token for a privileged call, refreshing it when it is
// about to expire.
func (g *Gateway) Token(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.current == nil {
		g.mu.Unlock()
		return "", apperr.Unauthorized("You must be signed in.", nil)
	}
	creds := g.current.Credentials
	g.mu.Unlock()

	if creds.ExpiresAt.IsZero() || time.Until(creds.ExpiresAt) > refreshLeeway {
		return creds.IDToken, nil
	}

	fresh, err := g.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}

	g.mu.Lock()
	if g.current == nil {
		g.mu.Unlock()
		return "", apperr.Unauthorized("You must be signed in.", nil)
	}
	g.current.Credentials = fresh
	updated := *g.current
	g.mu.Unlock()

	g.persist(ctx, &updated)
	return fresh.IDToken, nil
}

func (g *Gateway) establish(ctx context.Context, id *Identity) {
	g.persist(ctx, id)
	g.transition(id)
	g.logger.Info("session established", zap.String("user_id", id.Session.UserID))
}

func (g *Gateway) persist(ctx context.Context, id *Identity) {
	if g.store == nil || g.key == "" {
		return
	}
	if err := g.store.Save(ctx, g.key, id); err != nil {
		g.logger.Warn("failed to persist session", zap.Error(err))
	}
}

func (g *Gateway) transition(id *Identity) {
	g.notify.Lock()
	defer g.notify.Unlock()

	g.mu.Lock()
	wasResolved := g.resolved
	changed := !wasResolved || !sameUser(g.current, id)
	if id != nil {
		cp := *id
		g.current = &cp
	} else {
		g.current = nil
	}
	g.resolved = true
	handlers := make([]func(*Session), 0, len(g.observers))
	for _, fn := range g.observers {
		handlers = append(handlers, fn)
	}
	current := snapshot(g.current)
	g.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range handlers {
		fn(current)
	}
}

func sameUser(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Session == b.Session
}

func snapshot(id *Identity) *Session {
	if id == nil {
		return nil
	}
	s := id.Session
	return &s
}
