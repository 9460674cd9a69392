package message

import (
	"context"

	"github.com/kailas-cloud/docchat/internal/domain/dialog"
)

// Messenger sends one turn to the dialog service.
type Messenger interface {
	Message(ctx context.Context, p dialog.MessageParams) (dialog.Response, error)
}
