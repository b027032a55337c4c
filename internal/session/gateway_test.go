package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

type MockProvider struct{ mock.Mock }

func (m *MockProvider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}
func (m *MockProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}
func (m *MockProvider) SignInWithAssertion(ctx context.Context, a Assertion) (*Identity, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Identity), args.Error(1)
}
func (m *MockProvider) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	args := m.Called(ctx, idToken, displayName)
	return args.Error(0)
}
func (m *MockProvider) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(Credentials), args.Error(1)
}

type interactionFunc func(ctx context.Context) (Assertion, error)

func (f interactionFunc) Await(ctx context.Context) (Assertion, error) { return f(ctx) }

type navRecorder struct{ targets []string }

func (n *navRecorder) Navigate(target string) { n.targets = append(n.targets, target) }

func ada(expiresIn time.Duration) *Identity {
	return &Identity{
		Session:     Session{UserID: "u1", Email: "ada@example.com"},
		Credentials: Credentials{IDToken: "tok-1", RefreshToken: "ref-1", ExpiresAt: time.Now().Add(expiresIn)},
	}
}

func newGateway(p *MockProvider, store Store) *Gateway {
	return NewGateway(p, store, "cookie-1", zap.NewNop())
}

func TestGateway_Observe(t *testing.T) {
	g := newGateway(new(MockProvider), NewMemoryStore())

	var seen []*Session
	sub := g.Observe(func(s *Session) { seen = append(seen, s) })
	assert.Empty(t, seen, "unresolved gateway does not call observers")

	require.NoError(t, g.Restore(context.Background()))
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	var late []*Session
	g.Observe(func(s *Session) { late = append(late, s) })
	assert.Len(t, late, 1, "observer registered after resolution is called at once")

	sub.Close()
	require.NoError(t, g.Logout(context.Background()))
	assert.Len(t, seen, 1, "closed observer is not called")
}

func TestGateway_ObserveNeverEndsOnStaleState(t *testing.T) {
	for i := 0; i < 200; i++ {
		g := newGateway(new(MockProvider), nil)
		g.transition(nil)

		var mu sync.Mutex
		var last *Session
		done := make(chan struct{})
		go func() {
			defer close(done)
			g.transition(&Identity{Session: Session{UserID: "u1"}})
		}()
		g.Observe(func(s *Session) {
			mu.Lock()
			last = s
			mu.Unlock()
		})
		<-done

		mu.Lock()
		require.NotNil(t, last, "iteration %d", i)
		assert.Equal(t, "u1", last.UserID)
		mu.Unlock()
	}
}

func TestGateway_LoginWithPassword(t *testing.T) {
	t.Run("success notifies and persists", func(t *testing.T) {
		p := new(MockProvider)
		store := NewMemoryStore()
		p.On("SignIn", mock.Anything, "ada@example.com", "secret").Return(ada(time.Hour), nil).Once()
		g := newGateway(p, store)
		require.NoError(t, g.Restore(context.Background()))

		var seen []*Session
		g.Observe(func(s *Session) { seen = append(seen, s) })

		s, err := g.LoginWithPassword(context.Background(), " ada@example.com ", "secret")

		require.NoError(t, err)
		assert.Equal(t, "u1", s.UserID)
		require.Len(t, seen, 2)
		assert.Equal(t, "u1", seen[1].UserID)
		persisted, _ := store.Load(context.Background(), "cookie-1")
		require.NotNil(t, persisted)
		assert.Equal(t, "tok-1", persisted.Credentials.IDToken)
	})

	t.Run("credential error keeps anonymous", func(t *testing.T) {
		p := new(MockProvider)
		p.On("SignIn", mock.Anything, "ada@example.com", "bad").
			Return(nil, apperr.Credential("Incorrect email or password.", nil)).Once()
		g := newGateway(p, NewMemoryStore())
		require.NoError(t, g.Restore(context.Background()))

		_, err := g.LoginWithPassword(context.Background(), "ada@example.com", "bad")

		assert.ErrorIs(t, err, apperr.ErrCredential)
		s, resolved := g.Current()
		assert.True(t, resolved)
		assert.Nil(t, s)
	})

	t.Run("blank credentials never reach provider", func(t *testing.T) {
		p := new(MockProvider)
		g := newGateway(p, nil)

		_, err := g.LoginWithPassword(context.Background(), "", "x")

		assert.ErrorIs(t, err, apperr.ErrCredential)
		p.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGateway_RegisterWithPassword(t *testing.T) {
	p := new(MockProvider)
	p.On("SignUp", mock.Anything, "ada@example.com", "secret").Return(ada(time.Hour), nil).Once()
	p.On("UpdateProfile", mock.Anything, "tok-1", "Ada Lovelace").Return(nil).Once()
	g := newGateway(p, NewMemoryStore())

	s, err := g.RegisterWithPassword(context.Background(), "Ada Lovelace", "ada@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", s.DisplayName)
	current, _ := g.Current()
	assert.Equal(t, "Ada Lovelace", current.DisplayName)
	p.AssertExpectations(t)
}

func TestGateway_LoginFederated(t *testing.T) {
	t.Run("cancelled interaction", func(t *testing.T) {
		p := new(MockProvider)
		g := newGateway(p, nil)

		_, err := g.LoginFederated(context.Background(), interactionFunc(func(context.Context) (Assertion, error) {
			return Assertion{}, apperr.Cancelled(nil)
		}))

		assert.ErrorIs(t, err, apperr.ErrInteractionCancelled)
		p.AssertNotCalled(t, "SignInWithAssertion", mock.Anything, mock.Anything)
	})

	t.Run("assertion exchanged for session", func(t *testing.T) {
		p := new(MockProvider)
		a := Assertion{ProviderID: "google.com", IDToken: "gid"}
		p.On("SignInWithAssertion", mock.Anything, a).Return(ada(time.Hour), nil).Once()
		g := newGateway(p, nil)

		s, err := g.LoginFederated(context.Background(), interactionFunc(func(context.Context) (Assertion, error) {
			return a, nil
		}))

		require.NoError(t, err)
		assert.Equal(t, "u1", s.UserID)
	})
}

func TestGateway_Logout(t *testing.T) {
	p := new(MockProvider)
	p.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(ada(time.Hour), nil).Once()
	store := NewMemoryStore()
	g := newGateway(p, store)
	require.NoError(t, g.Restore(context.Background()))
	_, err := g.LoginWithPassword(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	calls := 0
	g.Observe(func(*Session) { calls++ })
	calls = 0

	require.NoError(t, g.Logout(context.Background()))
	require.NoError(t, g.Logout(context.Background()))

	assert.Equal(t, 1, calls)
	persisted, _ := store.Load(context.Background(), "cookie-1")
	assert.Nil(t, persisted)
	_, err = g.Token(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestGateway_RequireSession(t *testing.T) {
	t.Run("anonymous navigates away", func(t *testing.T) {
		g := newGateway(new(MockProvider), nil)
		require.NoError(t, g.Restore(context.Background()))
		nav := &navRecorder{}

		s, err := g.RequireSession(context.Background(), nav, "/login")

		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrRedirected)
		assert.Equal(t, []string{"/login"}, nav.targets)
	})

	t.Run("waits for resolution", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), "cookie-1", ada(time.Hour)))
		g := newGateway(new(MockProvider), store)
		nav := &navRecorder{}

		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = g.Restore(context.Background())
		}()
		s, err := g.RequireSession(context.Background(), nav, "/login")

		require.NoError(t, err)
		assert.Equal(t, "u1", s.UserID)
		assert.Empty(t, nav.targets)
	})

	t.Run("context ends the wait", func(t *testing.T) {
		g := newGateway(new(MockProvider), nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()

		_, err := g.RequireSession(ctx, &navRecorder{}, "/login")

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestGateway_Token(t *testing.T) {
	t.Run("fresh token returned as is", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), "cookie-1", ada(time.Hour)))
		g := newGateway(new(MockProvider), store)
		require.NoError(t, g.Restore(context.Background()))

		tok, err := g.Token(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	})

	t.Run("expiring token is refreshed and persisted", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Refresh", mock.Anything, "ref-1").
			Return(Credentials{IDToken: "tok-2", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()
		store := NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), "cookie-1", ada(10*time.Second)))
		g := newGateway(p, store)
		require.NoError(t, g.Restore(context.Background()))

		tok, err := g.Token(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "tok-2", tok)
		persisted, _ := store.Load(context.Background(), "cookie-1")
		assert.Equal(t, "tok-2", persisted.Credentials.IDToken)
		assert.Equal(t, "ref-1", persisted.Credentials.RefreshToken)
	})

	t.Run("refresh failure surfaces", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Refresh", mock.Anything, "ref-1").Return(Credentials{}, apperr.Unauthorized("Session expired.", errors.New("TOKEN_EXPIRED"))).Once()
		store := NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), "cookie-1", ada(0)))
		g := newGateway(p, store)
		require.NoError(t, g.Restore(context.Background()))

		_, err := g.Token(context.Background())

		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestSessionNameAndAvatar(t *testing.T) {
	s := &Session{Email: "kola@example.com"}
	assert.Equal(t, "kola", s.Name())
	assert.Contains(t, s.Avatar(), "name=kola%40example.com")

	s.DisplayName = "Kola"
	assert.Equal(t, "Kola", s.Name())
	s.AvatarURL = "https://img/k.png"
	assert.Equal(t, "https://img/k.png", s.Avatar())
}
