package llm

import "github.com/google/uuid"

// Session holds one conversation with the analyst: the dataset summary it
// was seeded with plus the role-tagged message history. Sessions are not
// safe for concurrent use; callers serialize access per session.
type Session struct {
	ID      string
	summary string
	history []Message
}

// NewSession creates an empty session with a fresh identifier.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Summary returns the dataset summary the session is bound to, or "" when
// the session has not been seeded yet.
func (s *Session) Summary() string { return s.summary }

// History returns a copy of the message history.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Reset clears the history and binding so the session can be reused for a
// different dataset. The ID is kept.
func (s *Session) Reset() {
	s.summary = ""
	s.history = nil
}

func (s *Session) seed(systemPrompt, dataSummary string) {
	s.summary = dataSummary
	s.history = []Message{
		SystemMessage(systemPrompt),
		UserMessage("Dataset summary:\n" + dataSummary + "\n\nI'm ready to analyze this data. What would you like to know?"),
	}
}

func (s *Session) append(m Message) { s.history = append(s.history, m) }
