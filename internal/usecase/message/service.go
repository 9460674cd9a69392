package message

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	"github.com/kailas-cloud/docchat/internal/logger"
)

// Service relays stateless dialog turns.
type Service struct {
	builder *dialog.MessageBuilder
	client  Messenger
	logger  *zap.Logger
}

// New creates a message service.
func New(builder *dialog.MessageBuilder, client Messenger, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{builder: builder, client: client, logger: l}
}

// Message sends text with the caller's context and returns the reconciled response.
// A response without output gets a disambiguation sentence for its top intent.
func (s *Service) Message(ctx context.Context, dctx dialog.Context, text string) (dialog.Response, error) {
	p := s.builder.Build(dialog.Turn{Text: text, Context: dctx})

	logger.FromContext(ctx, s.logger).Debug("message params",
		zap.String("workspace_id", p.WorkspaceID),
		zap.String("text", p.Input.Text),
		zap.Int("context_keys", len(p.Context)),
	)

	resp, err := s.client.Message(ctx, p)
	if err != nil {
		return dialog.Response{}, fmt.Errorf("message: %w", err)
	}

	out, err := dialog.Reconcile(resp)
	if err != nil {
		return dialog.Response{}, fmt.Errorf("message: %w", err)
	}
	return out, nil
}
