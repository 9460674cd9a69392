package chat

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain"
	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	"github.com/kailas-cloud/docchat/internal/domain/passage"
	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
	"github.com/kailas-cloud/docchat/internal/domain/session"
	"github.com/kailas-cloud/docchat/internal/logger"
	"github.com/kailas-cloud/docchat/internal/metrics"
)

// lockStripes bounds the per-session lock table.
const lockStripes = 64

// Kind is the shape of one chat exchange.
type Kind string

// Exchange kinds.
const (
	KindDialogText     Kind = Kind(dialog.DialogText)
	KindEmbeddedSearch Kind = Kind(dialog.EmbeddedSearch)
	KindSearch         Kind = "search"
)

// Exchange is the outcome of one user action: the turns it appended and the
// session context after it.
type Exchange struct {
	SessionID string              `json:"session_id"`
	Kind      Kind                `json:"kind"`
	Turns     []conversation.Turn `json:"turns"`
	Context   dialog.Context      `json:"context"`
	Degraded  bool                `json:"degraded,omitempty"`
}

// Config holds the fixed sentences the service adds to a conversation.
type Config struct {
	Welcome      string
	SearchHeader string
}

// Service runs server-held chat sessions. Calls on the same session are serialized.
type Service struct {
	repo     Repository
	messages *dialog.MessageBuilder
	client   Messenger
	search   Searcher
	cfg      Config
	logger   *zap.Logger

	newID func() string
	now   func() time.Time
	locks [lockStripes]sync.Mutex
}

// New creates a chat service.
func New(
	repo Repository,
	messages *dialog.MessageBuilder,
	client Messenger,
	search Searcher,
	cfg Config,
	l *zap.Logger,
) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		messages: messages,
		client:   client,
		search:   search,
		cfg:      cfg,
		logger:   l,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator replaces the session id source.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// Start creates a session with an empty context and the welcome turn.
func (s *Service) Start(ctx context.Context) (session.Session, error) {
	sess := session.New(s.newID(), s.cfg.Welcome, s.now().UTC())
	if err := s.repo.Save(ctx, sess); err != nil {
		return session.Session{}, fmt.Errorf("start session: %w", err)
	}
	s.log(ctx, sess.ID).Info("session started")
	return sess, nil
}

// Send relays text to the dialog service and records the reply.
// Nothing is saved unless the whole exchange succeeds.
func (s *Service) Send(ctx context.Context, sessionID, text string) (Exchange, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return Exchange{}, fmt.Errorf("send: %w", err)
	}

	log := sess.Log()
	added := []conversation.Turn{log.Append(text, conversation.User)}

	p := s.messages.Build(dialog.Turn{Text: text, Context: sess.Context})
	s.log(ctx, sessionID).Debug("message params",
		zap.String("workspace_id", p.WorkspaceID),
		zap.Int("context_keys", len(p.Context)),
	)

	raw, err := s.client.Message(ctx, p)
	if err != nil {
		return Exchange{}, fmt.Errorf("send: %w", err)
	}
	resp, err := dialog.Reconcile(raw)
	if err != nil {
		return Exchange{}, fmt.Errorf("send: %w", err)
	}

	cls := dialog.Classify(resp)
	ex := Exchange{SessionID: sessionID, Kind: Kind(cls.Kind), Degraded: cls.Degraded}

	switch {
	case cls.Kind == dialog.EmbeddedSearch:
		added = append(added, log.AppendSearchResult(s.cfg.SearchHeader, passage.Format(cls.Hits))...)
		metrics.ClassificationsTotal.WithLabelValues(string(dialog.EmbeddedSearch)).Inc()
	case cls.Degraded:
		s.log(ctx, sessionID).Warn("dialog response has neither text nor search data")
		metrics.ClassificationsTotal.WithLabelValues("degraded").Inc()
	default:
		added = append(added, log.Append(cls.Text, conversation.Engine))
		metrics.ClassificationsTotal.WithLabelValues(string(dialog.DialogText)).Inc()
	}

	next := sess.Advance(log, resp.Context, s.now().UTC())
	if err := s.repo.Save(ctx, next); err != nil {
		return Exchange{}, fmt.Errorf("send: save session: %w", err)
	}

	ex.Turns = added
	ex.Context = next.Context
	return ex, nil
}

// Search runs query with the chat page size and appends the passages.
// The session context is left as it was.
func (s *Service) Search(ctx context.Context, sessionID, query string) (Exchange, error) {
	if strings.TrimSpace(query) == "" {
		return Exchange{}, fmt.Errorf("search: empty query: %w", domain.ErrInvalidRequest)
	}

	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return Exchange{}, fmt.Errorf("search: %w", err)
	}

	log := sess.Log()
	added := []conversation.Turn{log.Append(query, conversation.User)}

	c, err := s.search.Query(ctx, domsearch.Overrides{Query: query})
	if err != nil {
		return Exchange{}, fmt.Errorf("search: %w", err)
	}
	added = append(added, log.AppendSearchResult(s.cfg.SearchHeader, c)...)

	next := sess.Advance(log, sess.Context, s.now().UTC())
	if err := s.repo.Save(ctx, next); err != nil {
		return Exchange{}, fmt.Errorf("search: save session: %w", err)
	}

	s.log(ctx, sessionID).Debug("search appended", zap.Int("passages", c.Len()))
	return Exchange{SessionID: sessionID, Kind: KindSearch, Turns: added, Context: next.Context}, nil
}

// Conversation returns the session's turns in render order.
func (s *Service) Conversation(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	return sess.Log().Turns(), nil
}

// End deletes the session. Unknown ids return domain.ErrSessionNotFound.
func (s *Service) End(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()

	if _, err := s.repo.Get(ctx, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	s.log(ctx, sessionID).Info("session ended")
	return nil
}

func (s *Service) lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) log(ctx context.Context, sessionID string) *zap.Logger {
	return logger.FromContext(ctx, s.logger).With(zap.String("session_id", sessionID))
}
