package webchat

import (
	"bytes"
	"encoding/json"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
)

// Client frame types.
const (
	FrameSubmit         = "submit"
	FrameSuggested      = "suggested"
	FrameSuggestedIndex = "suggested_index"
	FrameLanguage       = "language"
)

// Server frame types.
const (
	FrameHello   = "hello"
	FrameMessage = "message"
	FrameLoading = "loading"
	FrameScroll  = "scroll"
	FrameError   = "error"
)

type ClientFrame struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Index    int    `json:"index,omitempty"`
	Language string `json:"language,omitempty"`
}

// MessageView is a session message as sent to the browser.
type MessageView struct {
	conversation.Message
	HTML string `json:"html,omitempty"`
	// Level is success, warning or error, following the confidence thresholds.
	Level string `json:"confidence_level,omitempty"`
}

type ServerFrame struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Language  string        `json:"language,omitempty"`
	Messages  []MessageView `json:"messages,omitempty"`
	Message   *MessageView  `json:"message,omitempty"`
	State     string        `json:"state,omitempty"`
	Label     string        `json:"label,omitempty"`
	Busy      bool          `json:"busy,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func DecodeClientFrame(b []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return ClientFrame{}, errors.Wrap(err, "invalid frame")
	}
	switch f.Type {
	case FrameSubmit, FrameSuggested, FrameSuggestedIndex, FrameLanguage:
		return f, nil
	}
	return ClientFrame{}, errors.Errorf("unknown frame type %q", f.Type)
}

func ConfidenceLevel(c float64) string {
	switch {
	case c > 0.7:
		return "success"
	case c > 0.4:
		return "warning"
	default:
		return "error"
	}
}

// NewMessageView renders assistant markdown to HTML. Raw HTML in the markdown is not
// passed through.
func NewMessageView(md goldmark.Markdown, m conversation.Message) MessageView {
	v := MessageView{Message: m}
	if m.Role == conversation.RoleAssistant {
		var buf bytes.Buffer
		if err := md.Convert([]byte(m.Content), &buf); err == nil {
			v.HTML = buf.String()
		}
		if m.Confidence != nil {
			v.Level = ConfidenceLevel(*m.Confidence)
		}
	}
	return v
}

func loadingFrame(s loading.State, label string) ServerFrame {
	return ServerFrame{Type: FrameLoading, State: s.String(), Label: label, Busy: s.Busy()}
}
