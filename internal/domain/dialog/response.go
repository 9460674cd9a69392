// Package dialog models the dialog engine exchange: request assembly,
// response classification and intent disambiguation.
package dialog

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// WebhookResultKey is the context key under which the dialog engine embeds
// a search-service response.
const WebhookResultKey = "webhook_result_1"

// Context is opaque session state owned by the dialog engine.
type Context map[string]any

// Intent is one recognized intent with the engine's confidence in [0,1].
type Intent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Generic is one entry of the engine's generic output list.
type Generic struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text,omitempty"`
}

// Output is the reply part of a dialog response.
type Output struct {
	Text         []string  `json:"text"`
	Generic      []Generic `json:"generic,omitempty"`
	NodesVisited []string  `json:"nodes_visited,omitempty"`
}

// Input echoes the user input the engine received.
type Input struct {
	Text string `json:"text"`
}

// Response is a dialog engine reply. Output is nil when the engine sent none.
type Response struct {
	Intents  []Intent         `json:"intents"`
	Entities []map[string]any `json:"entities,omitempty"`
	Input    *Input           `json:"input,omitempty"`
	Output   *Output          `json:"output,omitempty"`
	Context  Context          `json:"context"`
}

// Clone returns a deep copy of the context. Nested maps and slices are not shared.
func (c Context) Clone() (Context, error) {
	if c == nil {
		return nil, nil
	}
	out := make(Context, len(c))
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy context: %w", err)
	}
	return out, nil
}
