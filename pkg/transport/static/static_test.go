package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_MatchesKeywords(t *testing.T) {
	tr, err := New(func() string { return "en" })
	require.NoError(t, err)

	resp, err := tr.SendMessage(context.Background(), "When is the opening match?")
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "December 21st")
	assert.Equal(t, []string{"matches"}, resp.Categories)
	assert.Equal(t, []string{"CAF"}, resp.Sources)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.NotEmpty(t, resp.SuggestedQuestions)
}

func TestSendMessage_FollowsLanguage(t *testing.T) {
	lang := "fr"
	tr, err := New(func() string { return lang })
	require.NoError(t, err)

	resp, err := tr.SendMessage(context.Background(), "Comment aller de l'aéroport au stade ?")
	require.NoError(t, err)
	assert.Equal(t, []string{"transport"}, resp.Categories)
	assert.Contains(t, resp.Response, "Depuis l'aéroport")

	lang = "en"
	resp, err = tr.SendMessage(context.Background(), "Tell me something unrelated")
	require.NoError(t, err)
	assert.Empty(t, resp.Categories)
	assert.Contains(t, resp.Response, "offline information")
}

func TestSendMessage_CancelledContext(t *testing.T) {
	tr, err := New(nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.SendMessage(ctx, "match")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFromYAML_RejectsEmptyTable(t *testing.T) {
	_, err := NewFromYAML([]byte("answers: []"), nil)
	assert.Error(t, err)
	_, err = NewFromYAML([]byte(":::"), nil)
	assert.Error(t, err)

	tr, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"health", "hotels", "matches", "restaurants", "transport"}, tr.Categories())
}
