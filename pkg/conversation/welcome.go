package conversation

import (
	"strings"

	"github.com/go-go-golems/can-assistant/pkg/i18n"
)

var (
	welcomeFeatureKeys = []string{
		"features.matches",
		"features.hotels",
		"features.restaurants",
		"features.health",
		"features.transport",
	}
	welcomeSuggestionKeys = []string{
		"suggested.matches",
		"suggested.hotels",
		"suggested.transport",
	}
)

// Welcome is the content of the synthesized first assistant message.
type Welcome struct {
	Content            string
	SuggestedQuestions []string
}

// BuildWelcome composes the welcome message: introduction, one line per capability,
// then the closing prompt.
func BuildWelcome(t i18n.Translator) Welcome {
	features := make([]string, 0, len(welcomeFeatureKeys))
	for _, k := range welcomeFeatureKeys {
		features = append(features, t.T(k))
	}

	var sb strings.Builder
	sb.WriteString(t.T("welcome"))
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(features, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(t.T("ask"))

	suggestions := make([]string, 0, len(welcomeSuggestionKeys))
	for _, k := range welcomeSuggestionKeys {
		suggestions = append(suggestions, t.T(k))
	}

	return Welcome{
		Content:            sb.String(),
		SuggestedQuestions: suggestions,
	}
}
