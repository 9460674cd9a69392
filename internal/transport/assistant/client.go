// Package assistant is the dialog service client.
package assistant

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/docchat/internal/domain/dialog"
	"github.com/kailas-cloud/docchat/internal/transport/upstream"
)

// ServiceName labels errors and metrics of this client.
const ServiceName = "assistant"

// Workspace is one entry of the workspace listing.
type Workspace struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
}

type workspaceList struct {
	Workspaces []Workspace `json:"workspaces"`
}

type messageBody struct {
	Input   dialog.Input   `json:"input"`
	Context dialog.Context `json:"context"`
}

// Client talks to the dialog service.
type Client struct {
	http *upstream.Client
}

// New creates a dialog service client.
func New(cfg upstream.Config) (*Client, error) {
	hc, err := upstream.NewClient(ServiceName, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

// Message sends one user turn to the workspace named in p.
func (c *Client) Message(ctx context.Context, p dialog.MessageParams) (dialog.Response, error) {
	var resp dialog.Response
	err := c.http.Do(ctx, upstream.Request{
		Operation: "message",
		Method:    http.MethodPost,
		Path:      "/v1/workspaces/" + p.WorkspaceID + "/message",
		Body:      messageBody{Input: p.Input, Context: p.Context},
	}, &resp)
	if err != nil {
		return dialog.Response{}, fmt.Errorf("assistant message: %w", err)
	}
	return resp, nil
}

// ListWorkspaces returns the workspaces visible to the configured credentials.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var list workspaceList
	err := c.http.Do(ctx, upstream.Request{
		Operation: "list_workspaces",
		Method:    http.MethodGet,
		Path:      "/v1/workspaces",
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("assistant list workspaces: %w", err)
	}
	return list.Workspaces, nil
}

// HealthCheck verifies the service answers with the configured credentials.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.ListWorkspaces(ctx); err != nil {
		return fmt.Errorf("assistant health check: %w", err)
	}
	return nil
}
