// Package oauth runs the browser half of Google sign-in with the
// authorization-code flow.
package oauth

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/kolapodev-a11y/PropertyHub/internal/config"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const GoogleProviderID = "google.com"

type GoogleFlow struct {
	config *oauth2.Config
}

func NewGoogleFlow(cfg config.OAuthConfig) *GoogleFlow {
	return newGoogleFlow(cfg, google.Endpoint)
}

func newGoogleFlow(cfg config.OAuthConfig, endpoint oauth2.Endpoint) *GoogleFlow {
	return &GoogleFlow{config: &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}}
}

func (f *GoogleFlow) Enabled() bool {
	return f.config.ClientID != ""
}

// AuthURL is where the browser goes to pick an account. state must come back
// unchanged on the callback.
func (f *GoogleFlow) AuthURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Callback turns the redirect back from Google into a session.Interaction.
func (f *GoogleFlow) Callback(query url.Values, expectedState string) session.Interaction {
	return &callback{flow: f, query: query, state: expectedState}
}

type callback struct {
	flow  *GoogleFlow
	query url.Values
	state string
}

func (c *callback) Await(ctx context.Context) (session.Assertion, error) {
	switch errCode := c.query.Get("error"); errCode {
	case "":
	case "access_denied":
		return session.Assertion{}, apperr.Cancelled(nil)
	default:
		return session.Assertion{}, apperr.Credential("Google sign-in failed: "+errCode, nil)
	}
	if c.state == "" || c.query.Get("state") != c.state {
		return session.Assertion{}, apperr.Credential("Your sign-in attempt expired. Please try again.", nil)
	}
	code := c.query.Get("code")
	if code == "" {
		return session.Assertion{}, apperr.Cancelled(nil)
	}

	tok, err := c.flow.config.Exchange(ctx, code)
	if err != nil {
		return session.Assertion{}, apperr.Transport("Could not complete Google sign-in.", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return session.Assertion{}, apperr.Credential("Google did not return an identity token.", nil)
	}
	return session.Assertion{
		ProviderID: GoogleProviderID,
		IDToken:    idToken,
		RequestURI: c.flow.config.RedirectURL,
	}, nil
}
