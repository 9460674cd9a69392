package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
	healthuc "github.com/kailas-cloud/docchat/internal/usecase/health"
)

type searchRequest struct {
	Query     string            `json:"query" validate:"required"`
	Count     int               `json:"count" validate:"gte=0,lte=100"`
	Offset    int               `json:"offset" validate:"gte=0"`
	Highlight bool              `json:"highlight"`
	Filter    string            `json:"filter"`
	Extra     map[string]string `json:"extra"`
}

type messageRequest struct {
	Context dialog.Context `json:"context"`
	Message string         `json:"message"`
}

type sessionMessageRequest struct {
	Message string `json:"message"`
}

type sessionSearchRequest struct {
	Query string `json:"query" validate:"required"`
}

type sessionResponse struct {
	SessionID    string              `json:"session_id"`
	Conversation []conversation.Turn `json:"conversation"`
}

type conversationResponse struct {
	Conversation []conversation.Turn `json:"conversation"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, err := s.search.Query(r.Context(), domsearch.Overrides{
		Query:     req.Query,
		Count:     req.Count,
		Offset:    req.Offset,
		Highlight: req.Highlight,
		Filter:    req.Filter,
		Extra:     req.Extra,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// Message handles POST /api/message.
func (s *Server) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.messages.Message(r.Context(), req.Context, req.Message)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// StartSession handles POST /api/sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.chat.Start(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID, Conversation: sess.Turns})
}

// GetConversation handles GET /api/sessions/{id}/conversation.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	turns, err := s.chat.Conversation(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{Conversation: turns})
}

// SendMessage handles POST /api/sessions/{id}/messages. An empty message continues the dialog.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sessionMessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	ex, err := s.chat.Send(r.Context(), gochi.URLParam(r, "id"), req.Message)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ex)
}

// SearchInSession handles POST /api/sessions/{id}/search.
func (s *Server) SearchInSession(w http.ResponseWriter, r *http.Request) {
	var req sessionSearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	ex, err := s.chat.Search(r.Context(), gochi.URLParam(r, "id"), req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ex)
}

// EndSession handles DELETE /api/sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.End(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
