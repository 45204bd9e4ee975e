package ui

import (
	"strings"
	"testing"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func englishLocalizer(t *testing.T) *i18n.Localizer {
	t.Helper()
	catalog, err := i18n.LoadCatalog()
	require.NoError(t, err)
	l, err := i18n.NewLocalizer(catalog, i18n.English)
	require.NoError(t, err)
	return l
}

func TestConfidenceColor(t *testing.T) {
	assert.Equal(t, ColorSuccess, ConfidenceColor(0.71))
	assert.Equal(t, ColorWarning, ConfidenceColor(0.7))
	assert.Equal(t, ColorWarning, ConfidenceColor(0.41))
	assert.Equal(t, ColorError, ConfidenceColor(0.4))
	assert.Equal(t, ColorError, ConfidenceColor(0))
}

func TestConfidenceBar(t *testing.T) {
	assert.True(t, strings.HasSuffix(ConfidenceBar(0.87, 10), " 87%"))
	assert.True(t, strings.HasSuffix(ConfidenceBar(1.5, 10), " 100%"))
	assert.True(t, strings.HasSuffix(ConfidenceBar(-1, 10), " 0%"))
	assert.Equal(t, 9, strings.Count(ConfidenceBar(0.87, 10), "█"))
}

func TestRenderer_Transcript(t *testing.T) {
	l := englishLocalizer(t)
	r, err := NewRenderer(80, "notty")
	require.NoError(t, err)

	s := conversation.NewSession(conversation.BuildWelcome(l))
	s.AppendUser("When is the opening match?")
	s.AppendAssistant("The opening match is on **December 21st**.", 0.87, []string{"CAF", "Web Search"},
		[]string{"Where is the stadium?"})

	out := r.Transcript(s.Messages(), l)
	assert.Contains(t, out, "When is the opening match?")
	assert.Contains(t, out, "December 21st")
	assert.Contains(t, out, "Confidence level: ")
	assert.Contains(t, out, "87%")
	assert.Contains(t, out, "Sources: CAF, Web Search")
	assert.Contains(t, out, "[1] Where is the stadium?")
	// the welcome suggestions are no longer the newest ones
	assert.Contains(t, out, "• What matches are scheduled for tomorrow?")
	assert.NotContains(t, out, "[1] What matches are scheduled for tomorrow?")
}

func TestRenderer_ErrorMessageHidesMetadata(t *testing.T) {
	l := englishLocalizer(t)
	r, err := NewRenderer(80, "notty")
	require.NoError(t, err)

	s := conversation.NewSession(conversation.Welcome{Content: "hi"})
	m := s.AppendError(l.T("error"))
	out := r.Message(m, l, true)
	assert.Contains(t, out, "Sorry, an error occurred.")
	assert.NotContains(t, out, "Sources")
	assert.NotContains(t, out, "%")
}
