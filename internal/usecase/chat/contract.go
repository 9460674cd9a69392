package chat

import (
	"context"

	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	"github.com/kailas-cloud/docchat/internal/domain/passage"
	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
	"github.com/kailas-cloud/docchat/internal/domain/session"
)

// Repository stores sessions. Get returns domain.ErrSessionNotFound for unknown ids.
type Repository interface {
	Get(ctx context.Context, id string) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	Delete(ctx context.Context, id string) error
}

// Messenger sends one turn to the dialog service.
type Messenger interface {
	Message(ctx context.Context, p dialog.MessageParams) (dialog.Response, error)
}

// Searcher runs a query and returns formatted passages.
type Searcher interface {
	Query(ctx context.Context, o domsearch.Overrides) (passage.Collection, error)
}
