// Package client talks to the notes REST API. HTTPStore lets the CLI's
// mutation cache use the API as its persistence boundary.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 30 * time.Second

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

// Client is the shared transport of HTTPStore and HTTPSummarizer. It is
// safe for concurrent use.
type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

func New(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// do sends body as JSON and decodes a 2xx response into out. Failures come
// back as typed errors so callers roll back the same way as for a local
// store.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Validation(apperrors.CodeInvalidRequest, "request could not be encoded").
				WithOperation(operation).
				WithCause(err).
				Build()
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Store(apperrors.CodeStoreUnavailable, "invalid API address").
			WithOperation(operation).
			WithRetryable(false).
			WithCause(err).
			Build()
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := apperrors.FromContext(ctx.Err(), operation); ctxErr != nil {
			return ctxErr
		}
		return apperrors.Store(apperrors.CodeStoreUnavailable, "notes API unreachable").
			WithOperation(operation).
			WithCause(err).
			Build()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Store(apperrors.CodeStoreUnavailable, "failed to read API response").
			WithOperation(operation).
			WithCause(err).
			Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.FromStatus(resp.StatusCode, data, operation)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Store(apperrors.CodeDecodeFailed, "unexpected API response").
			WithOperation(operation).
			WithDetails(fmt.Sprintf("status %d", resp.StatusCode)).
			WithCause(err).
			Build()
	}
	return nil
}

// Profile fetches the signed-in user's profile, creating it on first use.
func (c *Client) Profile(ctx context.Context) (note.Profile, error) {
	var p note.Profile
	if err := c.do(ctx, "Profile", http.MethodGet, "/api/v1/profile", nil, &p); err != nil {
		return note.Profile{}, err
	}
	return p, nil
}
