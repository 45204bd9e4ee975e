package openaitransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, content string, seen *map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]interface{}{"role": "assistant", "content": content},
			}},
		})
	}))
}

func TestSendMessage_DecodesStructuredAnswer(t *testing.T) {
	var seen map[string]interface{}
	srv := completionServer(t, `{"response":"Le match d'ouverture est le 21 décembre.","confidence":0.8,"sources":["CAF"],"suggested_questions":["Où est le stade ?"]}`, &seen)
	defer srv.Close()

	tr, err := New(Settings{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, func() string { return "fr" })
	require.NoError(t, err)

	resp, err := tr.SendMessage(context.Background(), "Quand est le match d'ouverture ?")
	require.NoError(t, err)
	assert.Equal(t, "Le match d'ouverture est le 21 décembre.", resp.Response)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, []string{"CAF"}, resp.Sources)
	assert.Equal(t, []string{"Où est le stade ?"}, resp.SuggestedQuestions)

	assert.Equal(t, DefaultModel, seen["model"])
	msgs := seen["messages"].([]interface{})
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]interface{})
	assert.Equal(t, "Respond in fr. User query: Quand est le match d'ouverture ?", user["content"])
	format := seen["response_format"].(map[string]interface{})
	assert.Equal(t, "json_object", format["type"])
}

func TestSendMessage_APIErrorIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"requests"}}`))
	}))
	defer srv.Close()

	tr, err := New(Settings{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)

	_, err = tr.SendMessage(context.Background(), "hi")
	var se *transport.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "rate limit reached", se.Message)
}

func TestParseAnswer(t *testing.T) {
	r := parseAnswer("```json\n{\"response\":\"ok\",\"confidence\":3}\n```")
	assert.Equal(t, "ok", r.Response)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, []string{SourceName}, r.Sources)

	r = parseAnswer("just some prose")
	assert.Equal(t, "just some prose", r.Response)
	assert.Equal(t, 0.0, r.Confidence)

	r = parseAnswer(`{"response":"x","suggested_questions":["a","b","c","d"]}`)
	assert.Len(t, r.SuggestedQuestions, 3)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Settings{}, nil)
	assert.Error(t, err)
}
