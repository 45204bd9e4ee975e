package conversation

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	SourceSystem = "System"
	SourceError  = "Error"
)

// Message is one turn of the conversation. It is never modified after being appended;
// accessors on Session hand out copies.
type Message struct {
	ID        uint64 `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`

	// Confidence, Sources and SuggestedQuestions are only set on assistant messages.
	Confidence         *float64 `json:"confidence,omitempty"`
	Sources            []string `json:"sources,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsError reports whether the message is the assistant-side rendition of a failed request.
func (m Message) IsError() bool {
	return m.Role == RoleAssistant && len(m.Sources) == 1 && m.Sources[0] == SourceError
}

// ConfidenceOr returns the confidence or def when the message carries none.
func (m Message) ConfidenceOr(def float64) float64 {
	if m.Confidence == nil {
		return def
	}
	return *m.Confidence
}

func (m Message) clone() Message {
	ret := m
	if m.Confidence != nil {
		c := *m.Confidence
		ret.Confidence = &c
	}
	ret.Sources = cloneStrings(m.Sources)
	ret.SuggestedQuestions = cloneStrings(m.SuggestedQuestions)
	return ret
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	ret := make([]string, len(s))
	copy(ret, s)
	return ret
}
