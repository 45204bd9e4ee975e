// Package conversation holds the in-memory message history of a single assistant session.
package conversation

import (
	"sync"
	"time"
)

const TimestampLayout = "15:04:05"

// Session is the ordered, append-only message history of one mounted conversation view.
// It is never persisted. Only the dispatcher appends to it; everybody else reads copies.
type Session struct {
	mu       sync.RWMutex
	messages []Message
	nextID   uint64
	now      func() time.Time
}

type SessionOption func(*Session)

// WithClock overrides the time source used for display timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates a session seeded with exactly one assistant welcome message.
func NewSession(welcome Welcome, options ...SessionOption) *Session {
	s := &Session{
		now: time.Now,
	}
	for _, o := range options {
		o(s)
	}
	confidence := 1.0
	s.append(Message{
		Role:               RoleAssistant,
		Content:            welcome.Content,
		Confidence:         &confidence,
		Sources:            []string{SourceSystem},
		SuggestedQuestions: cloneStrings(welcome.SuggestedQuestions),
	})
	return s
}

// AppendUser appends a user message. content is expected to be non-empty and trimmed.
func (s *Session) AppendUser(content string) Message {
	return s.append(Message{
		Role:    RoleUser,
		Content: content,
	})
}

// AppendAssistant appends an assistant message carrying the service's structured answer.
func (s *Session) AppendAssistant(text string, confidence float64, sources []string, suggestedQuestions []string) Message {
	return s.append(Message{
		Role:               RoleAssistant,
		Content:            text,
		Confidence:         &confidence,
		Sources:            cloneStrings(sources),
		SuggestedQuestions: cloneStrings(suggestedQuestions),
	})
}

// AppendError appends the assistant-side message shown for a failed request.
func (s *Session) AppendError(localizedErrorText string) Message {
	confidence := 0.0
	return s.append(Message{
		Role:       RoleAssistant,
		Content:    localizedErrorText,
		Confidence: &confidence,
		Sources:    []string{SourceError},
	})
}

func (s *Session) append(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ids come from a counter, two appends in the same clock tick still get distinct ids
	s.nextID++
	m.ID = s.nextID
	m.Timestamp = s.now().Format(TimestampLayout)
	s.messages = append(s.messages, m)
	return m.clone()
}

// Messages returns a copy of the history, oldest first.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]Message, len(s.messages))
	for i, m := range s.messages {
		ret[i] = m.clone()
	}
	return ret
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the newest message. A session always holds at least the welcome message.
func (s *Session) Last() Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages[len(s.messages)-1].clone()
}

// LastAssistant returns the newest assistant message, if any.
func (s *Session) LastAssistant() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			return s.messages[i].clone(), true
		}
	}
	return Message{}, false
}
