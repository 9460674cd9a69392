// Package upstream is the HTTP plumbing shared by the search and dialog service clients.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Config holds connection settings of one upstream service.
type Config struct {
	BaseURL  string
	APIKey   string
	Version  string
	RetryMax int
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Client issues authenticated JSON requests against one upstream service.
type Client struct {
	service string
	base    *url.URL
	apiKey  string
	version string
	http    *retryablehttp.Client
	logger  *zap.Logger
}

// NewClient creates a client for the named service.
func NewClient(service string, cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", service, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", service, cfg.BaseURL)
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	l = l.With(zap.String("upstream", service))

	return &Client{
		service: service,
		base:    base,
		apiKey:  cfg.APIKey,
		version: cfg.Version,
		http:    NewRetryableHTTPClient(cfg.RetryMax, cfg.Timeout, l),
		logger:  l,
	}, nil
}

// Service returns the service name used in errors and metrics.
func (c *Client) Service() string { return c.service }

// Request describes one upstream call.
type Request struct {
	Operation string // metrics label
	Method    string
	Path      string
	Query     url.Values
	Body      any // JSON encoded when non-nil
}

// Do sends req and decodes a 2xx JSON response into out (skipped when out is nil).
// Non-2xx responses become domain.UpstreamFailure errors.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	status, err := c.do(ctx, req, out)
	metrics.ObserveUpstream(c.service, req.Operation, status, time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) (string, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return "error", err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "canceled", fmt.Errorf("%s %s: %w", c.service, req.Operation, ctxErr)
		}
		return "error", fmt.Errorf("%s %s: %w",
			c.service, req.Operation, domain.UpstreamFailure(c.service, 0, err.Error()))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := decodeError(c.service, resp)
		c.logger.Warn("upstream request failed",
			zap.String("operation", req.Operation),
			zap.Int("status", resp.StatusCode),
			zap.Error(failure),
		)
		if errors.Is(failure, domain.ErrUpstreamRateLimited) {
			return "rate_limited", failure
		}
		return "error", failure
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return "error", fmt.Errorf("%s %s: decode response: %w",
				c.service, req.Operation, domain.UpstreamFailure(c.service, http.StatusBadGateway, err.Error()))
		}
	}
	return "success", nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*retryablehttp.Request, error) {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(req.Path, "/")

	q := url.Values{}
	for k, vs := range req.Query {
		q[k] = append([]string(nil), vs...)
	}
	if c.version != "" {
		q.Set("version", c.version)
	}
	u.RawQuery = q.Encode()

	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode request: %w", c.service, req.Operation, err)
		}
		body = b
	}

	var raw any
	if body != nil {
		raw = body
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, u.String(), raw)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", c.service, req.Operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.SetBasicAuth("apikey", c.apiKey)
	}
	return httpReq, nil
}

// errorBody is the error envelope shared by both services. Either error or message is set.
type errorBody struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeError(service string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if json.Unmarshal(data, &eb) != nil {
		eb = errorBody{}
	}

	code := eb.Code
	if code <= 0 {
		code = resp.StatusCode
	}
	msg := eb.Error
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(bytes.ToValidUTF8(data, nil)))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return domain.UpstreamFailure(service, code, msg)
}
