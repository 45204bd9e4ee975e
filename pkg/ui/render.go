package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/rs/zerolog/log"
)

const confidenceBarWidth = 20

// Renderer turns session messages into terminal text. Assistant content is markdown.
type Renderer struct {
	markdown *glamour.TermRenderer
	width    int
}

// NewRenderer creates a renderer wrapping at width. style is a glamour style name, "" or
// "auto" picks one from the terminal background.
func NewRenderer(width int, style string) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Renderer{markdown: md, width: width}, nil
}

func (r *Renderer) renderMarkdown(s string) string {
	if r.markdown == nil {
		return s
	}
	out, err := r.markdown.Render(s)
	if err != nil {
		log.Warn().Err(err).Msg("could not render markdown, showing raw text")
		return s
	}
	return strings.Trim(out, "\n")
}

// ConfidenceBar renders c as a filled bar of width cells followed by the percentage.
func ConfidenceBar(c float64, width int) string {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	filled := int(math.Round(c * float64(width)))
	bar := lipgloss.NewStyle().Foreground(ConfidenceColor(c)).Render(strings.Repeat("█", filled)) +
		metaStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %d%%", bar, int(math.Round(c*100)))
}

// Message renders one message with its confidence, sources and numbered suggestions. Only
// the newest assistant message numbers its suggestions, since only those can be chosen by
// number.
func (r *Renderer) Message(m conversation.Message, t i18n.Translator, numbered bool) string {
	var b strings.Builder

	label := assistantLabelStyle.Render("AFCON")
	switch {
	case m.IsUser():
		label = userLabelStyle.Render("You")
	case m.IsError():
		label = errorLabelStyle.Render("AFCON")
	}
	b.WriteString(label + " " + timestampStyle.Render(m.Timestamp) + "\n")

	if m.IsUser() {
		b.WriteString(lipgloss.NewStyle().Width(r.width).Render(m.Content))
		return b.String()
	}
	b.WriteString(r.renderMarkdown(m.Content))

	if m.Confidence != nil && !m.IsError() {
		b.WriteString("\n" + metaStyle.Render(t.T("confidence")+": ") + ConfidenceBar(*m.Confidence, confidenceBarWidth))
	}
	if len(m.Sources) > 0 && !m.IsError() {
		b.WriteString("\n" + metaStyle.Render(t.T("sources")+": "+strings.Join(m.Sources, ", ")))
	}
	if len(m.SuggestedQuestions) > 0 {
		b.WriteString("\n" + metaStyle.Render(t.T("suggested.title")))
		for i, q := range m.SuggestedQuestions {
			prefix := "  • "
			if numbered && i < 9 {
				prefix = fmt.Sprintf("  [%d] ", i+1)
			}
			b.WriteString("\n" + suggestionStyle.Render(prefix+q))
		}
	}
	return b.String()
}

// Transcript renders the whole history, oldest first.
func (r *Renderer) Transcript(msgs []conversation.Message, t i18n.Translator) string {
	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleAssistant {
			last = i
			break
		}
	}
	parts := make([]string, 0, len(msgs))
	for i, m := range msgs {
		parts = append(parts, r.Message(m, t, i == last))
	}
	return strings.Join(parts, "\n\n")
}
