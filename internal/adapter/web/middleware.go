package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

type contextKey string

const (
	principalCtxKey = contextKey("principal")
	gatewayCtxKey   = contextKey("session_gateway")
)

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func metricsMiddleware(m *metrics.MetricsManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// bearerAuth verifies "Authorization: Bearer <token>" and stores the principal
// in the request context.
func bearerAuth(verifier session.TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSONError(w, http.StatusUnauthorized, "Missing token")
				return
			}
			principal, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				logger.Debug("bearer rejected", zap.String("path", r.URL.Path), zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, apperr.Message(err, "Invalid token"))
				return
			}
			ctx := context.WithValue(r.Context(), principalCtxKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFrom(ctx context.Context) *session.Principal {
	p, _ := ctx.Value(principalCtxKey).(*session.Principal)
	return p
}

// withSession attaches a session gateway keyed by the session cookie,
// issuing a new cookie on first visit.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ""
		if c, err := r.Cookie(s.opts.SessionCookie); err == nil {
			key = c.Value
		}
		if _, err := uuid.Parse(key); err != nil {
			key = uuid.NewString()
			s.setSessionCookie(w, key)
		}

		gw := session.NewGateway(s.deps.Provider, s.deps.Sessions, key, s.logger)
		if err := gw.Restore(r.Context()); err != nil {
			s.logger.Warn("session restore failed, continuing anonymously", zap.Error(err))
		}
		ctx := context.WithValue(r.Context(), gatewayCtxKey, &sessionScope{gateway: gw, key: key})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type sessionScope struct {
	gateway *session.Gateway
	key     string
}

func scopeFrom(ctx context.Context) *sessionScope {
	sc, _ := ctx.Value(gatewayCtxKey).(*sessionScope)
	return sc
}

// currentSession is the signed-in user for this request, or nil.
func currentSession(r *http.Request) *session.Session {
	sc := scopeFrom(r.Context())
	if sc == nil {
		return nil
	}
	sess, _ := sc.gateway.Current()
	return sess
}

func (s *Server) setSessionCookie(w http.ResponseWriter, key string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.SessionCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// rotateSession moves the stored identity to a fresh key after sign-in so a
// key handed out before authentication never carries a session.
func (s *Server) rotateSession(w http.ResponseWriter, r *http.Request) {
	sc := scopeFrom(r.Context())
	if sc == nil || s.deps.Sessions == nil {
		return
	}
	ctx := r.Context()
	id, err := s.deps.Sessions.Load(ctx, sc.key)
	if err != nil || id == nil {
		return
	}
	fresh := uuid.NewString()
	if err := s.deps.Sessions.Save(ctx, fresh, id); err != nil {
		s.logger.Warn("session rotation failed", zap.Error(err))
		return
	}
	if err := s.deps.Sessions.Delete(ctx, sc.key); err != nil {
		s.logger.Warn("failed to drop pre-login session key", zap.Error(err))
	}
	sc.key = fresh
	s.setSessionCookie(w, fresh)
}

// redirectNav records where a session gate wanted to send the browser.
type redirectNav struct {
	target string
}

func (n *redirectNav) Navigate(target string) { n.target = target }
