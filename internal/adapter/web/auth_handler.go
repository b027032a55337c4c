package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/upload"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

const (
	oauthStateCookie = "ph_oauth_state"
	oauthNextCookie  = "ph_oauth_next"
	oauthCookieTTL   = 600
	oauthCookiePath  = "/auth/google"
)

type authData struct {
	pageData
	Next          string
	Email         string
	DisplayName   string
	GoogleEnabled bool
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (s *Server) loginURL(next string) string {
	if next == "" || next == "/" {
		return s.opts.LoginTarget
	}
	return s.opts.LoginTarget + "?next=" + url.QueryEscape(next)
}

func (s *Server) googleEnabled() bool {
	return s.deps.Google != nil && s.deps.Google.Enabled()
}

func (s *Server) authPage(r *http.Request, title, next string) authData {
	return authData{pageData: s.base(r, title), Next: safeNext(next), GoogleEnabled: s.googleEnabled()}
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if currentSession(r) != nil {
		http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
		return
	}
	s.renderPage(w, http.StatusOK, "login", s.authPage(r, "Sign in", next))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	sc := scopeFrom(r.Context())
	email := strings.TrimSpace(r.PostFormValue("email"))
	next := r.PostFormValue("next")

	if _, err := sc.gateway.LoginWithPassword(r.Context(), email, r.PostFormValue("password")); err != nil {
		data := s.authPage(r, "Sign in", next)
		data.Email = email
		data.Notices = []upload.Notice{{Kind: upload.NoticeError, Message: apperr.Message(err, "Sign-in failed. Please try again.")}}
		s.renderPage(w, statusFor(err), "login", data)
		return
	}
	s.rotateSession(w, r)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if currentSession(r) != nil {
		http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
		return
	}
	s.renderPage(w, http.StatusOK, "register", s.authPage(r, "Create an account", next))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	sc := scopeFrom(r.Context())
	name := strings.TrimSpace(r.PostFormValue("name"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	next := r.PostFormValue("next")

	if _, err := sc.gateway.RegisterWithPassword(r.Context(), name, email, r.PostFormValue("password")); err != nil {
		data := s.authPage(r, "Create an account", next)
		data.Email, data.DisplayName = email, name
		data.Notices = []upload.Notice{{Kind: upload.NoticeError, Message: apperr.Message(err, "Sign-up failed. Please try again.")}}
		s.renderPage(w, statusFor(err), "register", data)
		return
	}
	s.rotateSession(w, r)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sc := scopeFrom(r.Context()); sc != nil {
		if err := sc.gateway.Logout(r.Context()); err != nil {
			s.logger.Warn("logout failed", zap.Error(err))
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if !s.googleEnabled() {
		s.renderNotFound(w, r)
		return
	}
	state := uuid.NewString()
	s.setOAuthCookie(w, oauthStateCookie, state, oauthCookieTTL)
	s.setOAuthCookie(w, oauthNextCookie, url.QueryEscape(safeNext(r.URL.Query().Get("next"))), oauthCookieTTL)
	http.Redirect(w, r, s.deps.Google.AuthURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.googleEnabled() {
		s.renderNotFound(w, r)
		return
	}
	state, next := "", "/"
	if c, err := r.Cookie(oauthStateCookie); err == nil {
		state = c.Value
	}
	if c, err := r.Cookie(oauthNextCookie); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil {
			next = safeNext(v)
		}
	}
	s.setOAuthCookie(w, oauthStateCookie, "", -1)
	s.setOAuthCookie(w, oauthNextCookie, "", -1)

	sc := scopeFrom(r.Context())
	interaction := s.deps.Google.Callback(r.URL.Query(), state)
	if _, err := sc.gateway.LoginFederated(r.Context(), interaction); err != nil {
		if errors.Is(err, apperr.ErrInteractionCancelled) {
			http.Redirect(w, r, s.loginURL(next), http.StatusSeeOther)
			return
		}
		s.logger.Warn("google sign-in failed", zap.Error(err))
		data := s.authPage(r, "Sign in", next)
		data.Notices = []upload.Notice{{Kind: upload.NoticeError, Message: apperr.Message(err, "Sign-in failed. Please try again.")}}
		s.renderPage(w, statusFor(err), "login", data)
		return
	}
	s.rotateSession(w, r)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) setOAuthCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     oauthCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
