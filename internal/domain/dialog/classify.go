package dialog

import (
	"encoding/json"

	"github.com/kailas-cloud/docchat/internal/domain/passage"
)

// Kind is the shape of a classified dialog response.
type Kind string

// Response kinds.
const (
	DialogText     Kind = "dialog_text"
	EmbeddedSearch Kind = "embedded_search"
)

// Location records where embedded passages were found.
type Location string

// Passage locations inside the webhook result, in lookup order.
const (
	LocationNone            Location = ""
	LocationContextEmbedded Location = "context_embedded"
	LocationDirect          Location = "direct"
)

// Classification is the outcome of Classify.
type Classification struct {
	Kind     Kind
	Text     string
	Hits     []passage.Hit
	Location Location
	// Degraded is set when the response carried neither text nor search data.
	Degraded bool
}

// webhookResult covers both supported shapes of the embedded search payload.
type webhookResult struct {
	Response *struct {
		Result *struct {
			Passages []passage.Hit `json:"passages"`
		} `json:"result"`
	} `json:"response"`
	Passages []passage.Hit `json:"passages"`
}

// Classify decides whether resp carries an embedded search payload or a
// plain text reply. A non-empty webhook result wins over any text.
func Classify(resp Response) Classification {
	if wr, ok := embeddedSearch(resp.Context); ok {
		c := Classification{Kind: EmbeddedSearch}
		switch {
		case wr.Response != nil && wr.Response.Result != nil && len(wr.Response.Result.Passages) > 0:
			c.Hits = wr.Response.Result.Passages
			c.Location = LocationContextEmbedded
		case len(wr.Passages) > 0:
			c.Hits = wr.Passages
			c.Location = LocationDirect
		}
		return c
	}

	if text, ok := replyText(resp.Output); ok {
		return Classification{Kind: DialogText, Text: text}
	}
	return Classification{Kind: DialogText, Degraded: true}
}

// embeddedSearch decodes the webhook result when it is a non-empty object.
func embeddedSearch(ctx Context) (webhookResult, bool) {
	raw, ok := ctx[WebhookResultKey]
	if !ok || raw == nil {
		return webhookResult{}, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return webhookResult{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || len(fields) == 0 {
		return webhookResult{}, false
	}

	var wr webhookResult
	// A payload whose passages do not decode still counts as search data.
	_ = json.Unmarshal(data, &wr)
	return wr, true
}

func replyText(out *Output) (string, bool) {
	if out == nil {
		return "", false
	}
	if len(out.Text) > 0 && out.Text[0] != "" {
		return out.Text[0], true
	}
	if len(out.Generic) > 0 {
		g := out.Generic[0]
		if (g.ResponseType == "" || g.ResponseType == "text") && g.Text != "" {
			return g.Text, true
		}
	}
	return "", false
}
