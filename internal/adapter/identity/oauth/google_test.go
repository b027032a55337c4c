package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/kolapodev-a11y/PropertyHub/internal/config"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

var testCfg = config.OAuthConfig{
	GoogleClientID:     "client-id",
	GoogleClientSecret: "client-secret",
	GoogleRedirectURL:  "http://localhost:8080/auth/google/callback",
}

func TestAuthURL(t *testing.T) {
	f := NewGoogleFlow(testCfg)
	assert.True(t, f.Enabled())

	u, err := url.Parse(f.AuthURL("state-1"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "openid")
}

func TestCallback(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") == "no-id" {
			_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","id_token":"google-id-token"}`))
	}))
	defer tokenSrv.Close()

	f := newGoogleFlow(testCfg, oauth2.Endpoint{AuthURL: tokenSrv.URL + "/auth", TokenURL: tokenSrv.URL + "/token"})
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		a, err := f.Callback(url.Values{"code": {"c"}, "state": {"s"}}, "s").Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, GoogleProviderID, a.ProviderID)
		assert.Equal(t, "google-id-token", a.IDToken)
		assert.Equal(t, testCfg.GoogleRedirectURL, a.RequestURI)
	})

	t.Run("user closed the chooser", func(t *testing.T) {
		_, err := f.Callback(url.Values{"error": {"access_denied"}, "state": {"s"}}, "s").Await(ctx)
		assert.ErrorIs(t, err, apperr.ErrInteractionCancelled)
	})

	t.Run("state mismatch", func(t *testing.T) {
		_, err := f.Callback(url.Values{"code": {"c"}, "state": {"x"}}, "s").Await(ctx)
		assert.ErrorIs(t, err, apperr.ErrCredential)
	})

	t.Run("no id token", func(t *testing.T) {
		_, err := f.Callback(url.Values{"code": {"no-id"}, "state": {"s"}}, "s").Await(ctx)
		assert.ErrorIs(t, err, apperr.ErrCredential)
	})
}
