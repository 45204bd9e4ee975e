package dispatcher

import (
	"context"
	"testing"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripTimestamps(msgs []conversation.Message) []conversation.Message {
	for i := range msgs {
		msgs[i].Timestamp = ""
	}
	return msgs
}

func TestSuggestedRouter_SameEffectAsTyping(t *testing.T) {
	const question = "What matches are scheduled for tomorrow?"

	var typedCalls []string
	typed := newFixture(t, openingMatchTransport(&typedCalls))
	require.True(t, typed.dispatcher.Submit(context.Background(), question))

	var clickedCalls []string
	clicked := newFixture(t, openingMatchTransport(&clickedCalls))
	router := NewSuggestedRouter(clicked.dispatcher, clicked.session)
	require.True(t, router.ChooseSuggested(context.Background(), question))

	assert.Equal(t, typedCalls, clickedCalls)
	assert.Equal(t, stripTimestamps(typed.session.Messages()), stripTimestamps(clicked.session.Messages()))
	assert.Equal(t, typed.notifier.kinds(), clicked.notifier.kinds())
}

func TestSuggestedRouter_ChooseIndexUsesNewestAssistantMessage(t *testing.T) {
	var calls []string
	f := newFixture(t, openingMatchTransport(&calls))
	router := NewSuggestedRouter(f.dispatcher, f.session)

	q, ok := router.Suggestion(0)
	require.True(t, ok)
	assert.Equal(t, "What matches are scheduled for tomorrow?", q)

	require.True(t, router.ChooseIndex(context.Background(), 0))
	assert.Equal(t, []string{"What matches are scheduled for tomorrow?"}, calls)

	// the answer carries its own follow-ups
	require.True(t, router.ChooseIndex(context.Background(), 1))
	assert.Equal(t, "How do I buy tickets?", calls[1])

	assert.False(t, router.ChooseIndex(context.Background(), 5))
	assert.False(t, router.ChooseIndex(context.Background(), -1))
	assert.Len(t, calls, 2)
}
