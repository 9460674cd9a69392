package cli

import (
	"fmt"
	"io"

	"github.com/kailas-cloud/docchat/internal/domain/conversation"
	"github.com/kailas-cloud/docchat/internal/domain/passage"
)

// NoDescription stands in for a passage with empty text.
const NoDescription = "No Description"

// RenderTurns writes turns in log order, one line each.
func RenderTurns(w io.Writer, turns []conversation.Turn) {
	for _, t := range turns {
		switch t.Owner {
		case conversation.User:
			fmt.Fprintf(w, "you> %s\n", t.Text)
		case conversation.EngineContinuation:
			fmt.Fprintf(w, "     - %s\n", describe(t.Text))
		default:
			fmt.Fprintf(w, "bot> %s\n", t.Text)
		}
	}
}

// RenderPassages writes a search result as a numbered list.
func RenderPassages(w io.Writer, c passage.Collection) {
	if c.Len() == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	for _, p := range c.Results {
		fmt.Fprintf(w, "  [%d] (%s) %s\n", p.ID, p.Score, describe(p.Text))
	}
}

func describe(text string) string {
	if text == "" {
		return NoDescription
	}
	return text
}
