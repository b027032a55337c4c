// Package apiclient calls the listings API on behalf of a signed-in user.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

const (
	createFallback = "Failed to create listing"
	deleteFallback = "Failed to delete listing"
	maxErrorBody   = 64 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type createResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) CreateListing(ctx context.Context, draft domain.Draft, token string) (string, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("Client.CreateListing: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/listings", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Client.CreateListing: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, token)
	if err != nil {
		return "", apperr.Transport(createFallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", statusError(resp, createFallback)
	}
	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.ID == "" {
		return "", apperr.Transport(createFallback, fmt.Errorf("malformed response: %v", err))
	}
	return out.ID, nil
}

func (c *Client) DeleteListing(ctx context.Context, id, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/listings/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("Client.DeleteListing: %w", err)
	}
	resp, err := c.do(req, token)
	if err != nil {
		return apperr.Transport(deleteFallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(resp, deleteFallback)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(req *http.Request, token string) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// statusError prefers the server's own error text over fallback.
func statusError(resp *http.Response, fallback string) error {
	msg := fallback
	var e errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&e); err == nil && e.Error != "" {
		msg = e.Error
	}
	cause := fmt.Errorf("status %d", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Unauthorized(msg, cause)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &apperr.Error{Kind: apperr.KindValidation, Msg: msg, Err: cause}
	default:
		return apperr.Transport(msg, cause)
	}
}
