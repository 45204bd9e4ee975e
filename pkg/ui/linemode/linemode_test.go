package linemode

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/preferences"
	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingTransport) SendMessage(_ context.Context, text string) (*transport.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, text)
	return &transport.Response{
		Response:           "answer to " + text,
		Confidence:         0.5,
		Sources:            []string{"CAF"},
		SuggestedQuestions: []string{"next question"},
	}, nil
}

func newRunner(t *testing.T, in string) (*Runner, *recordingTransport, *bytes.Buffer, *preferences.MemoryStore) {
	t.Helper()
	catalog, err := i18n.LoadCatalog()
	require.NoError(t, err)
	l, err := i18n.NewLocalizer(catalog, i18n.English)
	require.NoError(t, err)

	tr := &recordingTransport{}
	session := conversation.NewSession(conversation.BuildWelcome(l))
	machine := loading.NewMachine(loading.WithClock(loading.NewManualClock()))
	d := dispatcher.New(session, machine, tr, l)

	out := &bytes.Buffer{}
	prefs := preferences.NewMemoryStore()
	r, err := NewRunner(d, l, prefs, strings.NewReader(in), out, 80, "notty")
	require.NoError(t, err)
	return r, tr, out, prefs
}

func TestRun_SubmitsLinesUntilEOF(t *testing.T) {
	r, tr, out, _ := newRunner(t, "When is the opening match?\n\n/1\nlast line without newline")
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []string{
		"When is the opening match?",
		"next question",
		"last line without newline",
	}, tr.calls)
	assert.Contains(t, out.String(), "Welcome to AFCON 2025 Assistant!")
	assert.Contains(t, out.String(), "answer to When is the opening match?")
	assert.Contains(t, out.String(), "50%")
}

func TestRun_QuitAndLanguage(t *testing.T) {
	r, tr, out, prefs := newRunner(t, "/lang fr\n/lang xx\n/9\n/quit\nnever sent\n")
	require.NoError(t, r.Run(context.Background()))

	assert.Empty(t, tr.calls)
	assert.Equal(t, i18n.French, r.localizer.Language())
	lang, err := preferences.Language(context.Background(), prefs, "en")
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)
	assert.Contains(t, out.String(), "no suggestion 9")
}

func TestLoadingListener_PrintsBusyStages(t *testing.T) {
	r, _, out, _ := newRunner(t, "")
	l := r.LoadingListener()
	l(loading.Thinking)
	l(loading.Searching)
	l(loading.Idle)
	assert.Equal(t, "… Thinking...\n… Searching for information...\n", out.String())
}
