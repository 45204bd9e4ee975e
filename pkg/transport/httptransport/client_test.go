package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_PostsContentRoleAndLanguage(t *testing.T) {
	var got transport.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response": "The opening match is on December 21st.",
			"confidence": 0.87,
			"sources": ["CAF", "Web Search"],
			"categories": ["matches"],
			"suggested_questions": ["Where is the stadium?"]
		}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/", WithLanguage(func() string { return "fr" }))
	require.NoError(t, err)

	resp, err := c.SendMessage(context.Background(), "When is the opening match?")
	require.NoError(t, err)

	assert.Equal(t, transport.Request{Content: "When is the opening match?", Role: "user", Language: "fr"}, got)
	assert.Equal(t, "The opening match is on December 21st.", resp.Response)
	assert.Equal(t, 0.87, resp.Confidence)
	assert.Equal(t, []string{"CAF", "Web Search"}, resp.Sources)
	assert.Equal(t, []string{"matches"}, resp.Categories)
	assert.Equal(t, []string{"Where is the stadium?"}, resp.SuggestedQuestions)
	assert.Empty(t, resp.Error)
}

func TestSendMessage_ErrorStatusBecomesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "agent crashed"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.SendMessage(context.Background(), "hi")
	require.Error(t, err)

	var se *transport.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "agent crashed", se.Message)
}

func TestSendMessage_ErrorFieldIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": "", "error": "rate limited", "confidence": 0}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	resp, err := c.SendMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "rate limited", resp.Error)
}

func TestSendMessage_TimeoutAndCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = c.SendMessage(context.Background(), "slow")
	require.Error(t, err)

	c, err = New(srv.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.SendMessage(ctx, "cancelled")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "healthy", "components": {"openai": "ok", "vector_store": "ok"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "ok", h.Components["openai"])
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/chat", c.endpoint(chatPath))
}

func TestNew_TimeoutSurvivesCustomHTTPClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	for _, options := range [][]Option{
		{WithTimeout(2 * time.Second), WithHTTPClient(shared)},
		{WithHTTPClient(shared), WithTimeout(2 * time.Second)},
	} {
		c, err := New("http://localhost:8000", options...)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, c.client.Timeout)
		assert.NotSame(t, shared, c.client)
	}
	assert.Equal(t, time.Minute, shared.Timeout, "the caller's client is not modified")

	c, err := New("http://localhost:8000", WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Same(t, shared, c.client)
}

func TestSendMessage_UsesCustomHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": "ok", "confidence": 0.5}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithHTTPClient(srv.Client()), WithTimeout(5*time.Second))
	require.NoError(t, err)
	resp, err := c.SendMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
}
