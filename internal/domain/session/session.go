// Package session pairs a dialog context with a conversation log.
package session

import (
	"time"

	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	"github.com/kailas-cloud/docchat/internal/domain/dialog"
)

// Session is the server-held state of one conversation.
type Session struct {
	ID        string              `json:"id"`
	Context   dialog.Context      `json:"context"`
	Turns     []conversation.Turn `json:"turns"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// New creates a session with an empty context and an optional welcome turn.
func New(id, welcome string, now time.Time) Session {
	log := conversation.New()
	if welcome != "" {
		log.Append(welcome, conversation.Engine)
	}
	return Session{
		ID:        id,
		Context:   dialog.Context{},
		Turns:     log.Turns(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Log rebuilds the conversation log from the stored turns.
func (s Session) Log() *conversation.Log {
	return conversation.Restore(s.Turns)
}

// Advance returns a copy of s with the given log and context committed.
// A nil context is stored as empty.
func (s Session) Advance(log *conversation.Log, ctx dialog.Context, now time.Time) Session {
	if ctx == nil {
		ctx = dialog.Context{}
	}
	s.Context = ctx
	s.Turns = log.Turns()
	s.UpdatedAt = now
	return s
}
