// Package conversation holds the append-only log of a chat session.
package conversation

import "github.com/kailas-cloud/docchat/internal/domain/passage"

// Owner says who produced a turn.
type Owner string

// Turn owners.
const (
	User Owner = "user"
	// Engine is a primary reply line, e.g. a header sentence.
	Engine Owner = "engine"
	// EngineContinuation belongs to the preceding Engine turn, e.g. one passage.
	EngineContinuation Owner = "engine-continuation"
)

// IsValid reports whether o is a known owner.
func (o Owner) IsValid() bool {
	switch o {
	case User, Engine, EngineContinuation:
		return true
	default:
		return false
	}
}

// Turn is one rendered line of the conversation.
type Turn struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Owner Owner  `json:"owner"`
}

// Log is a per-session conversation. Ids increase by one per append and are
// never reused. A Log is not safe for concurrent use.
type Log struct {
	turns  []Turn
	lastID int
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Restore rebuilds a log from stored turns. The counter continues from the
// highest stored id.
func Restore(turns []Turn) *Log {
	l := &Log{turns: append([]Turn(nil), turns...)}
	for _, t := range turns {
		if t.ID > l.lastID {
			l.lastID = t.ID
		}
	}
	return l
}

// Append adds a turn and returns it with its assigned id.
func (l *Log) Append(text string, owner Owner) Turn {
	l.lastID++
	t := Turn{ID: l.lastID, Text: text, Owner: owner}
	l.turns = append(l.turns, t)
	return t
}

// AppendSearchResult adds a header turn followed by one continuation turn per
// passage, in passage order. It returns the appended turns.
func (l *Log) AppendSearchResult(header string, c passage.Collection) []Turn {
	added := make([]Turn, 0, c.Len()+1)
	added = append(added, l.Append(header, Engine))
	for _, p := range c.Results {
		added = append(added, l.Append(p.Text, EngineContinuation))
	}
	return added
}

// Turns returns a copy of the log in append order.
func (l *Log) Turns() []Turn {
	return append([]Turn{}, l.turns...)
}

// Len returns the number of turns.
func (l *Log) Len() int { return len(l.turns) }

// LastID returns the highest id handed out so far.
func (l *Log) LastID() int { return l.lastID }

// Clone returns an independent copy for staged appends.
func (l *Log) Clone() *Log {
	return &Log{turns: l.Turns(), lastID: l.lastID}
}
