package dispatcher

import (
	"context"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
)

// SuggestedRouter submits the pre-written follow-up questions attached to assistant
// messages. Choosing a suggestion is exactly a Submit of its text.
type SuggestedRouter struct {
	submitter Submitter
	session   *conversation.Session
}

func NewSuggestedRouter(submitter Submitter, session *conversation.Session) *SuggestedRouter {
	return &SuggestedRouter{submitter: submitter, session: session}
}

func (r *SuggestedRouter) ChooseSuggested(ctx context.Context, question string) bool {
	return r.submitter.Submit(ctx, question)
}

// ChooseIndex submits the i-th (0-based) suggestion of the newest assistant message.
func (r *SuggestedRouter) ChooseIndex(ctx context.Context, i int) bool {
	q, ok := r.Suggestion(i)
	if !ok {
		return false
	}
	return r.ChooseSuggested(ctx, q)
}

// Suggestion returns the i-th suggestion of the newest assistant message.
func (r *SuggestedRouter) Suggestion(i int) (string, bool) {
	m, ok := r.session.LastAssistant()
	if !ok || i < 0 || i >= len(m.SuggestedQuestions) {
		return "", false
	}
	return m.SuggestedQuestions[i], true
}
