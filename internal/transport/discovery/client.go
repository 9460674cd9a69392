// Package discovery is the search service client.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/docchat/internal/domain/passage"
	"github.com/kailas-cloud/docchat/internal/domain/search"
	"github.com/kailas-cloud/docchat/internal/transport/upstream"
)

// ServiceName labels errors and metrics of this client.
const ServiceName = "discovery"

// queryResponse is the part of a query response the service consumes.
// Document results are ignored: only passages are rendered.
type queryResponse struct {
	MatchingResults int           `json:"matching_results"`
	Passages        []passage.Hit `json:"passages"`
}

// Client queries one search service deployment.
type Client struct {
	http    *upstream.Client
	limiter *rate.Limiter
}

// Config holds client settings. RatePerSec <= 0 disables throttling.
type Config struct {
	upstream.Config
	RatePerSec float64
}

// New creates a search service client.
func New(cfg Config) (*Client, error) {
	hc, err := upstream.NewClient(ServiceName, cfg.Config)
	if err != nil {
		return nil, err
	}
	c := &Client{http: hc}
	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c, nil
}

// Query runs a natural-language query against the environment and collection in p.
func (c *Client) Query(ctx context.Context, p search.Params) (search.Result, error) {
	if err := c.wait(ctx); err != nil {
		return search.Result{}, err
	}

	var res queryResponse
	err := c.http.Do(ctx, upstream.Request{
		Operation: "query",
		Method:    http.MethodGet,
		Path:      "/v1/environments/" + p.EnvironmentID + "/collections/" + p.CollectionID + "/query",
		Query:     queryValues(p),
	}, &res)
	if err != nil {
		return search.Result{}, fmt.Errorf("discovery query: %w", err)
	}
	return search.Result{MatchingResults: res.MatchingResults, Hits: res.Passages}, nil
}

// HealthCheck fetches the environment the client is pinned to.
func (c *Client) HealthCheck(ctx context.Context, environmentID string) error {
	err := c.http.Do(ctx, upstream.Request{
		Operation: "get_environment",
		Method:    http.MethodGet,
		Path:      "/v1/environments/" + environmentID,
	}, nil)
	if err != nil {
		return fmt.Errorf("discovery health check: %w", err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discovery throttle: %w", err)
	}
	return nil
}

func queryValues(p search.Params) url.Values {
	q := url.Values{}
	for k, v := range p.Extra {
		q.Set(k, v)
	}
	q.Set("natural_language_query", p.NaturalLanguageQuery)
	q.Set("passages", strconv.FormatBool(p.Passages))
	q.Set("count", strconv.Itoa(p.Count))
	q.Set("passages.count", strconv.Itoa(p.PassagesCount))
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Highlight {
		q.Set("highlight", "true")
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	return q
}
