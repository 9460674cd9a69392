package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/search"
	"github.com/kailas-cloud/docchat/internal/transport/upstream"
)

func newClient(t *testing.T, srv *httptest.Server, rps float64) *Client {
	t.Helper()
	c, err := New(Config{
		Config: upstream.Config{
			BaseURL: srv.URL,
			APIKey:  "key",
			Version: "2020-11-15",
			Timeout: 5 * time.Second,
		},
		RatePerSec: rps,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matching_results": 12,
			"passages": [
				{"document_id":"d1","field":"text","passage_text":"Install the agent.","passage_score":13.24817,"start_offset":0,"end_offset":18},
				{"document_id":"d2","field":"title","passage_text":"Guide","passage_score":2.1}
			]
		}`))
	}))
	defer srv.Close()

	b := search.NewBuilder(search.Identity{EnvironmentID: "env-1", CollectionID: "coll-1"}, 3)
	p, err := b.Build(search.Overrides{Query: "how to install", Offset: 2, Extra: map[string]string{"deduplicate": "true"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res, err := newClient(t, srv, 0).Query(context.Background(), p)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotPath != "/v1/environments/env-1/collections/coll-1/query" {
		t.Errorf("path = %q", gotPath)
	}
	want := map[string]string{
		"version":                "2020-11-15",
		"natural_language_query": "how to install",
		"passages":               "true",
		"count":                  "3",
		"passages.count":         "3",
		"offset":                 "2",
		"deduplicate":            "true",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query[%s] = %q, want %q", k, gotQuery[k], v)
		}
	}
	if _, ok := gotQuery["highlight"]; ok {
		t.Error("highlight must be omitted when false")
	}

	if res.MatchingResults != 12 {
		t.Errorf("MatchingResults = %d", res.MatchingResults)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("passages = %d", len(res.Hits))
	}
	h := res.Hits[0]
	if h.Field != "text" || h.Text != "Install the agent." || h.Score == nil || *h.Score != 13.24817 {
		t.Errorf("hit = %+v", h)
	}
	if h.EndOffset != 18 || h.DocumentID != "d1" {
		t.Errorf("offsets/doc = %+v", h)
	}
}

func TestQuery_QuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":400,"error":"Number of free queries per month exceeded"}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv, 0).Query(context.Background(), search.Params{EnvironmentID: "e", CollectionID: "c"})
	if !errors.Is(err, domain.ErrUpstreamRateLimited) {
		t.Fatalf("expected ErrUpstreamRateLimited, got %v", err)
	}
}

func TestQuery_ThrottleRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"passages":[]}`))
	}))
	defer srv.Close()

	c := newClient(t, srv, 0.001)
	p := search.Params{EnvironmentID: "e", CollectionID: "c"}

	if _, err := c.Query(context.Background(), p); err != nil {
		t.Fatalf("first query: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Query(ctx, p); err == nil {
		t.Fatal("expected throttle error for the second query")
	}
}

func TestHealthCheck(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Path != "/v1/environments/env-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"environment_id":"env-1"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv, 0)
	if err := c.HealthCheck(context.Background(), "env-1"); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if gotPath != "/v1/environments/env-1" {
		t.Errorf("path = %q", gotPath)
	}
	if err := c.HealthCheck(context.Background(), "missing"); !errors.Is(err, domain.ErrUpstreamService) {
		t.Fatalf("expected ErrUpstreamService, got %v", err)
	}
}
