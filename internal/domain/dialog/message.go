package dialog

import "maps"

// Turn is one conversational input from the caller.
type Turn struct {
	Text    string
	Context Context
}

// MessageParams is a fully assembled dialog request.
type MessageParams struct {
	WorkspaceID string  `json:"workspaceId"`
	Context     Context `json:"context"`
	Input       Input   `json:"input"`
}

// MessageBuilder pins every dialog request to one workspace.
type MessageBuilder struct {
	workspaceID string
}

// NewMessageBuilder creates a builder for the given workspace.
func NewMessageBuilder(workspaceID string) *MessageBuilder {
	return &MessageBuilder{workspaceID: workspaceID}
}

// WorkspaceID returns the workspace every request is sent to.
func (b *MessageBuilder) WorkspaceID() string { return b.workspaceID }

// Build assembles the request. Empty text is valid and means "continue".
func (b *MessageBuilder) Build(turn Turn) MessageParams {
	ctx := Context{}
	if turn.Context != nil {
		ctx = maps.Clone(turn.Context)
	}
	return MessageParams{
		WorkspaceID: b.workspaceID,
		Context:     ctx,
		Input:       Input{Text: turn.Text},
	}
}
