package dialog

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Confidence thresholds; each boundary belongs to the higher bucket.
const (
	ConfidentThreshold = 0.75
	TentativeThreshold = 0.5
)

// Disambiguate picks the sentence to surface for a recognized intent.
func Disambiguate(intent Intent) string {
	switch {
	case intent.Confidence >= ConfidentThreshold:
		return "I understood your intent was " + intent.Intent
	case intent.Confidence >= TentativeThreshold:
		return "I think your intent was " + intent.Intent
	default:
		return "I did not understand your intent"
	}
}

// Reconcile returns a copy of resp with a synthesized reply when the engine
// sent no output. An existing output is never overwritten, and without
// intents the synthesized output stays empty. resp is not modified.
func Reconcile(resp Response) (Response, error) {
	var out Response
	if err := copier.CopyWithOption(&out, &resp, copier.Option{DeepCopy: true}); err != nil {
		return Response{}, fmt.Errorf("copy response: %w", err)
	}
	if out.Output != nil {
		return out, nil
	}
	out.Output = &Output{}
	if len(out.Intents) > 0 {
		out.Output.Text = []string{Disambiguate(out.Intents[0])}
	}
	return out, nil
}
