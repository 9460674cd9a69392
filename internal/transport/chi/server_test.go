package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	"github.com/kailas-cloud/docchat/internal/domain/passage"
	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
	"github.com/kailas-cloud/docchat/internal/domain/session"
	chatuc "github.com/kailas-cloud/docchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/docchat/internal/usecase/health"
	messageuc "github.com/kailas-cloud/docchat/internal/usecase/message"
	searchuc "github.com/kailas-cloud/docchat/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	got    domsearch.Params
	result domsearch.Result
	err    error
}

func (m *mockSearcher) Query(_ context.Context, p domsearch.Params) (domsearch.Result, error) {
	m.got = p
	return m.result, m.err
}

type mockMessenger struct {
	got  dialog.MessageParams
	resp dialog.Response
	err  error
}

func (m *mockMessenger) Message(_ context.Context, p dialog.MessageParams) (dialog.Response, error) {
	m.got = p
	return m.resp, m.err
}

type mockRepo struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func (m *mockRepo) Get(_ context.Context, id string) (session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return session.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockRepo) Save(_ context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockRepo) Ping(context.Context) error { return nil }

type fixture struct {
	searcher  *mockSearcher
	messenger *mockMessenger
	repo      *mockRepo
	router    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		searcher:  &mockSearcher{},
		messenger: &mockMessenger{},
		repo:      &mockRepo{sessions: map[string]session.Session{}},
	}
	identity := domsearch.Identity{EnvironmentID: "env", CollectionID: "coll"}
	searchSvc := searchuc.New(domsearch.NewBuilder(identity, 3), f.searcher, nil)
	chatSearch := searchuc.New(domsearch.NewBuilder(identity, 4), f.searcher, nil)
	builder := dialog.NewMessageBuilder("ws")
	messageSvc := messageuc.New(builder, f.messenger, nil)
	chatSvc := chatuc.New(f.repo, builder, f.messenger, chatSearch,
		chatuc.Config{Welcome: "Welcome!", SearchHeader: "Excerpts:"}, nil).
		WithIDGenerator(func() string { return "sess-1" })
	healthSvc := healthuc.New(nil, healthuc.Check{Name: "sessions", Checker: healthuc.PingChecker(f.repo), Critical: true})

	r := gochi.NewRouter()
	NewServer(searchSvc, messageSvc, chatSvc, healthSvc, nil).Register(r)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func f64(v float64) *float64 { return &v }

// --- Tests ---

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.searcher.result = domsearch.Result{Hits: []passage.Hit{
		{Field: "text", Text: "Open the settings.", Score: f64(17.98766)},
		{Field: "title", Text: "Settings"},
	}}

	rr := f.do(http.MethodPost, "/api/search", `{"query":"settings","count":5,"offset":1,"filter":"year>2019"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	got := decodeBody[passage.Collection](t, rr)
	if got.Len() != 1 || got.Results[0] != (passage.Passage{ID: 1, Text: "Open the settings.", Score: "17.9877"}) {
		t.Errorf("results = %+v", got.Results)
	}
	p := f.searcher.got
	if p.Count != 5 || p.PassagesCount != 5 || p.Offset != 1 || p.Filter != "year>2019" {
		t.Errorf("params = %+v", p)
	}
}

func TestSearch_EmptyResultsIsArray(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/search", `{"query":"nothing"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Body.String(); got != "{\"results\":[]}\n" {
		t.Errorf("body = %q", got)
	}
	if f.searcher.got.Count != 3 {
		t.Errorf("default count = %d, want 3", f.searcher.got.Count)
	}
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{"malformed", `{"query":`, CodeBadRequest},
		{"missing query", `{"count":2}`, CodeValidation},
		{"negative count", `{"query":"q","count":-1}`, CodeValidation},
		{"count too large", `{"query":"q","count":1000}`, CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, "/api/search", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := decodeBody[ErrorResponse](t, rr); got.Code != tc.code {
				t.Errorf("code = %q, want %q", got.Code, tc.code)
			}
		})
	}
}

func TestSearch_QuotaExceeded(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = domain.UpstreamFailure("discovery", 400, "Number of free queries per month exceeded")

	rr := f.do(http.MethodPost, "/api/search", `{"query":"q"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeBody[ErrorResponse](t, rr)
	if got.Code != CodeRateLimited || got.Message != domain.QuotaExceededMessage {
		t.Errorf("body = %+v", got)
	}
}

func TestMessage(t *testing.T) {
	f := newFixture(t)
	f.messenger.resp = dialog.Response{
		Intents: []dialog.Intent{{Intent: "hours", Confidence: 0.5}},
		Context: dialog.Context{"conversation_id": "c-1"},
	}

	rr := f.do(http.MethodPost, "/api/message", `{"context":{"conversation_id":"c-1"},"message":"when open"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}

	got := decodeBody[dialog.Response](t, rr)
	if got.Output == nil || len(got.Output.Text) != 1 || got.Output.Text[0] != "I think your intent was hours" {
		t.Errorf("output = %+v", got.Output)
	}
	if f.messenger.got.Input.Text != "when open" || f.messenger.got.Context["conversation_id"] != "c-1" {
		t.Errorf("params = %+v", f.messenger.got)
	}
}

func TestMessage_UpstreamStatusRelayed(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{http.StatusNotFound, http.StatusNotFound},
		{http.StatusServiceUnavailable, http.StatusServiceUnavailable},
		{0, http.StatusInternalServerError},
		{302, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		f := newFixture(t)
		f.messenger.err = domain.UpstreamFailure("assistant", tc.code, "upstream says no")

		rr := f.do(http.MethodPost, "/api/message", `{"message":"hi"}`)
		if rr.Code != tc.want {
			t.Errorf("code %d: status = %d, want %d", tc.code, rr.Code, tc.want)
			continue
		}
		got := decodeBody[ErrorResponse](t, rr)
		if got.Code != CodeUpstream || got.Message != "upstream says no" {
			t.Errorf("body = %+v", got)
		}
	}
}

func TestMessage_InternalError(t *testing.T) {
	f := newFixture(t)
	f.messenger.err = errors.New("socket closed")

	rr := f.do(http.MethodPost, "/api/message", `{"message":"hi"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody[ErrorResponse](t, rr); got.Code != CodeInternal || got.Message != "internal error" {
		t.Errorf("body = %+v", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/sessions", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rr.Code)
	}
	started := decodeBody[sessionResponse](t, rr)
	if started.SessionID != "sess-1" || len(started.Conversation) != 1 || started.Conversation[0].Text != "Welcome!" {
		t.Fatalf("start = %+v", started)
	}

	f.messenger.resp = dialog.Response{Output: &dialog.Output{Text: []string{"Hello!"}}}
	rr = f.do(http.MethodPost, "/api/sessions/sess-1/messages", `{"message":"hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("send status = %d, body = %s", rr.Code, rr.Body)
	}
	ex := decodeBody[chatuc.Exchange](t, rr)
	if ex.Kind != chatuc.KindDialogText || len(ex.Turns) != 2 {
		t.Errorf("exchange = %+v", ex)
	}

	f.searcher.result = domsearch.Result{Hits: []passage.Hit{{Field: "text", Text: "p1"}}}
	rr = f.do(http.MethodPost, "/api/sessions/sess-1/search", `{"query":"docs"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", rr.Code, rr.Body)
	}
	if f.searcher.got.Count != 4 {
		t.Errorf("chat search count = %d, want 4", f.searcher.got.Count)
	}

	rr = f.do(http.MethodGet, "/api/sessions/sess-1/conversation", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("conversation status = %d", rr.Code)
	}
	conv := decodeBody[conversationResponse](t, rr)
	wantOwners := []conversation.Owner{
		conversation.Engine, conversation.User, conversation.Engine,
		conversation.User, conversation.Engine, conversation.EngineContinuation,
	}
	if len(conv.Conversation) != len(wantOwners) {
		t.Fatalf("conversation = %+v", conv.Conversation)
	}
	for i, o := range wantOwners {
		if conv.Conversation[i].Owner != o || conv.Conversation[i].ID != i+1 {
			t.Errorf("turn[%d] = %+v, want owner %q id %d", i, conv.Conversation[i], o, i+1)
		}
	}

	rr = f.do(http.MethodDelete, "/api/sessions/sess-1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = f.do(http.MethodGet, "/api/sessions/sess-1/conversation", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("after delete status = %d", rr.Code)
	}
	if got := decodeBody[ErrorResponse](t, rr); got.Code != CodeSessionNotFound {
		t.Errorf("code = %q", got.Code)
	}
}

func TestSessionSearch_RequiresQuery(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/api/sessions", "")

	rr := f.do(http.MethodPost, "/api/sessions/sess-1/search", `{"query":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody[ErrorResponse](t, rr); got.Message != "query is required" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestSessionMessage_UnknownSession(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/sessions/nope/messages", `{"message":"hi"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeBody[healthResponse](t, rr)
	if got.Status != "ok" || got.Checks["sessions"] != healthuc.CheckOK {
		t.Errorf("health = %+v", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	rr = f.do(http.MethodGet, "/api/search", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
}
