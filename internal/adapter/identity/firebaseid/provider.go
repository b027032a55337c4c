package firebaseid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

// Provider implements session.IdentityProvider against the Identity Toolkit
// and Secure Token REST endpoints.
type Provider struct {
	identityURL string
	tokenURL    string
	apiKey      string
	http        *http.Client
	logger      *zap.Logger
	now         func() time.Time
}

func NewProvider(identityURL, tokenURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		identityURL: strings.TrimRight(identityURL, "/"),
		tokenURL:    tokenURL,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: timeout},
		logger:      logger.Named("FirebaseProvider"),
		now:         time.Now,
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*session.Identity, error) {
	return p.authenticate(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	return p.authenticate(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *Provider) SignInWithAssertion(ctx context.Context, a session.Assertion) (*session.Identity, error) {
	postBody := url.Values{"id_token": {a.IDToken}, "providerId": {a.ProviderID}}.Encode()
	return p.authenticate(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody,
		"requestUri":          a.RequestURI,
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	})
}

func (p *Provider) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	var out authResponse
	return p.post(ctx, p.identityURL+"/accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}, &out)
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refreshToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.withKey(p.tokenURL), strings.NewReader(form.Encode()))
	if err != nil {
		return session.Credentials{}, fmt.Errorf("Provider.Refresh: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := p.do(req, &out); err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    p.expiry(out.ExpiresIn),
	}, nil
}

func (p *Provider) authenticate(ctx context.Context, method string, body map[string]any) (*session.Identity, error) {
	var out authResponse
	if err := p.post(ctx, p.identityURL+"/"+method, body, &out); err != nil {
		return nil, err
	}
	return &session.Identity{
		Session: session.Session{
			UserID:      out.LocalID,
			DisplayName: out.DisplayName,
			Email:       out.Email,
			AvatarURL:   out.PhotoURL,
		},
		Credentials: session.Credentials{
			IDToken:      out.IDToken,
			RefreshToken: out.RefreshToken,
			ExpiresAt:    p.expiry(out.ExpiresIn),
		},
	}, nil
}

func (p *Provider) post(ctx context.Context, endpoint string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("Provider.post: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.withKey(endpoint), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("Provider.post: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req, out)
}

func (p *Provider) do(req *http.Request, out any) error {
	resp, err := p.http.Do(req)
	if err != nil {
		return apperr.Transport("Could not reach the sign-in service. Please try again.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e apiError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		p.logger.Debug("identity call rejected", zap.Int("status", resp.StatusCode), zap.String("code", e.Error.Message))
		return mapError(resp.StatusCode, e.Error.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transport("Unexpected response from the sign-in service.", err)
	}
	return nil
}

func (p *Provider) withKey(endpoint string) string {
	if p.apiKey == "" {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(p.apiKey)
}

func (p *Provider) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return p.now().Add(time.Duration(secs) * time.Second)
}

// credentialMessages maps provider error codes to what the user sees.
var credentialMessages = map[string]string{
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"INVALID_EMAIL":               "Please enter a valid email address.",
	"MISSING_PASSWORD":            "Please enter a password.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters.",
	"EMAIL_NOT_FOUND":             "Incorrect email or password.",
	"INVALID_PASSWORD":            "Incorrect email or password.",
	"INVALID_LOGIN_CREDENTIALS":   "Incorrect email or password.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Please try again later.",
	"INVALID_IDP_RESPONSE":        "Google sign-in could not be verified.",
}

var unauthorizedCodes = map[string]bool{
	"TOKEN_EXPIRED":                  true,
	"INVALID_ID_TOKEN":               true,
	"INVALID_REFRESH_TOKEN":          true,
	"USER_NOT_FOUND":                 true,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": true,
}

// mapError classifies a provider failure. Codes may carry a detail suffix,
// as in "WEAK_PASSWORD : Password should be at least 6 characters".
func mapError(status int, message string) error {
	code := strings.TrimSpace(message)
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	cause := fmt.Errorf("identity provider: status %d: %s", status, message)
	if msg, ok := credentialMessages[code]; ok {
		return apperr.Credential(msg, cause)
	}
	if unauthorizedCodes[code] {
		return apperr.Unauthorized("Your session has expired. Please sign in again.", cause)
	}
	return apperr.Transport("Sign-in failed. Please try again.", cause)
}
