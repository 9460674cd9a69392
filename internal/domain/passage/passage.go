// Package passage reshapes raw search-service hits into numbered passages.
package passage

import (
	"math"
	"strconv"
)

// TextField is the only hit field that carries a passage.
const TextField = "text"

// zeroScore is rendered when a hit has no usable score.
const zeroScore = "0.0000"

// Hit is one raw match returned by the search service.
type Hit struct {
	DocumentID  string   `json:"document_id,omitempty"`
	Field       string   `json:"field"`
	Text        string   `json:"passage_text"`
	Score       *float64 `json:"passage_score,omitempty"`
	StartOffset int      `json:"start_offset,omitempty"`
	EndOffset   int      `json:"end_offset,omitempty"`
}

// Passage is a UI-ready view of a text hit.
type Passage struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Score string `json:"score"`
}

// Collection is the formatted result of one search.
type Collection struct {
	Results []Passage `json:"results"`
}

// Len returns the number of passages.
func (c Collection) Len() int { return len(c.Results) }

// Format keeps only text hits, in input order, numbering them from 1.
// Ids are local to one call.
func Format(hits []Hit) Collection {
	results := make([]Passage, 0, len(hits))
	for _, h := range hits {
		if h.Field != TextField {
			continue
		}
		results = append(results, Passage{
			ID:    len(results) + 1,
			Text:  h.Text,
			Score: FormatScore(h.Score),
		})
	}
	return Collection{Results: results}
}

// FormatScore renders a relevance score with exactly four decimals.
// nil, zero and NaN render as "0.0000".
func FormatScore(score *float64) string {
	if score == nil || *score == 0 || math.IsNaN(*score) {
		return zeroScore
	}
	return strconv.FormatFloat(*score, 'f', 4, 64)
}
