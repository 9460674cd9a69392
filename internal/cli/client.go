package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	"github.com/kailas-cloud/docchat/internal/domain/passage"
	"github.com/kailas-cloud/docchat/internal/transport/upstream"
)

// APIError is a non-2xx answer of the docchat API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// RateLimited reports whether the search quota is exhausted.
func (e *APIError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// SearchOptions are the optional fields of a search request.
type SearchOptions struct {
	Count  int
	Offset int
}

// Exchange is the API view of one chat turn.
type Exchange struct {
	SessionID string              `json:"session_id"`
	Kind      string              `json:"kind"`
	Turns     []conversation.Turn `json:"turns"`
	Degraded  bool                `json:"degraded"`
}

// Session is a freshly started chat session.
type Session struct {
	ID           string              `json:"session_id"`
	Conversation []conversation.Turn `json:"conversation"`
}

// Client calls the docchat HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an API client. Requests that got no answer are retried
// retryMax times. Any HTTP answer is final because the server already retried
// its upstream calls.
func NewClient(baseURL, apiKey string, retryMax int, timeout time.Duration) *Client {
	rc := upstream.NewRetryableHTTPClient(retryMax, timeout, zap.NewNop())
	rc.CheckRetry = retryPolicy
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    rc.StandardClient(),
	}
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil {
		return false, nil
	}
	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}

// Search runs a stateless search.
func (c *Client) Search(ctx context.Context, query string, o SearchOptions) (passage.Collection, error) {
	body := map[string]any{"query": query}
	if o.Count > 0 {
		body["count"] = o.Count
	}
	if o.Offset > 0 {
		body["offset"] = o.Offset
	}
	var out passage.Collection
	err := c.do(ctx, http.MethodPost, "/api/search", body, &out)
	return out, err
}

// StartSession opens a chat session.
func (c *Client) StartSession(ctx context.Context) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &out)
	return out, err
}

// Send posts one chat message.
func (c *Client) Send(ctx context.Context, sessionID, message string) (Exchange, error) {
	var out Exchange
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		map[string]string{"message": message}, &out)
	return out, err
}

// SearchInSession runs a search whose passages are appended to the session.
func (c *Client) SearchInSession(ctx context.Context, sessionID, query string) (Exchange, error) {
	var out Exchange
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/search",
		map[string]string{"query": query}, &out)
	return out, err
}

// EndSession deletes a chat session.
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.NewDecoder(resp.Body).Decode(apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
