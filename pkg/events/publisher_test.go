package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerTransport struct{}

func (answerTransport) SendMessage(context.Context, string) (*transport.Response, error) {
	return &transport.Response{Response: "December 21st", Confidence: 0.9, Sources: []string{"CAF"}}, nil
}

func startRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter()
	require.NoError(t, err)
	return r
}

func runRouter(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = r.Close()
	})
	select {
	case <-r.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
}

func TestPublisher_DeliversSessionActivityInOrder(t *testing.T) {
	r := startRouter(t)

	var mu sync.Mutex
	var got []string
	pub := NewPublisher(r.Publisher, "s1")
	r.AddHandler("test", pub.Topic(), HandlerFunc(func(e Event) error {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "s1", e.SessionID)
		got = append(got, e.String())
		return nil
	}))
	runRouter(t, r)

	catalog, err := i18n.LoadCatalog()
	require.NoError(t, err)
	l, err := i18n.NewLocalizer(catalog, i18n.English)
	require.NoError(t, err)

	session := conversation.NewSession(conversation.BuildWelcome(l))
	machine := loading.NewMachine(loading.WithClock(loading.NewManualClock()), loading.WithListener(pub.LoadingChanged))
	d := dispatcher.New(session, machine, answerTransport{}, l, dispatcher.WithSessionID("s1"), dispatcher.WithNotifier(pub))

	require.True(t, d.Submit(context.Background(), "When is the opening match?"))

	expected := []string{
		"message-appended(user #2)",
		"loading-changed(thinking)",
		"message-appended(assistant #3)",
		"scroll-to-latest",
		"loading-changed(idle)",
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(expected)
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, expected, got)
}

func TestNewEventFromJSON_Validates(t *testing.T) {
	_, err := NewEventFromJSON([]byte(`{"type":"message-appended"}`))
	assert.Error(t, err)
	_, err = NewEventFromJSON([]byte(`{"type":"nope"}`))
	assert.Error(t, err)
	_, err = NewEventFromJSON([]byte(`not json`))
	assert.Error(t, err)

	e, err := NewEventFromJSON([]byte(`{"type":"loading-changed","session_id":"s","state":"searching"}`))
	require.NoError(t, err)
	require.NotNil(t, e.State)
	assert.Equal(t, loading.Searching, *e.State)
}
