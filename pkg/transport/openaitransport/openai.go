// Package openaitransport answers questions directly with an OpenAI compatible chat
// completion endpoint, asking the model for the same structured answer the assistant
// service returns.
package openaitransport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel = openai.GPT4oMini
	SourceName   = "OpenAI"
)

const systemPrompt = `You are the AFCON 2025 assistant. You help visitors of the Africa Cup of Nations in Morocco with match schedules and results, hotels, restaurants, hospitals and pharmacies, and transportation.
Answer with a single JSON object and nothing else, using these fields:
- "response": the answer for the user, formatted with appropriate emojis
- "confidence": a number between 0 and 1
- "sources": a list of short source names
- "categories": a list among "matches", "hotels", "restaurants", "health", "transport"
- "suggested_questions": up to three follow-up questions the user might ask, in the answer language`

type Settings struct {
	APIKey      string  `mapstructure:"api-key"`
	BaseURL     string  `mapstructure:"base-url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

type Transport struct {
	client   *openai.Client
	settings Settings
	language transport.LanguageFunc
}

var _ transport.Transport = &Transport{}

func New(s Settings, language transport.LanguageFunc) (*Transport, error) {
	if s.APIKey == "" {
		return nil, errors.New("openai transport needs an api key")
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	return &Transport{
		client:   openai.NewClientWithConfig(cfg),
		settings: s,
		language: language,
	}, nil
}

func (t *Transport) SendMessage(ctx context.Context, text string) (*transport.Response, error) {
	lang := "en"
	if t.language != nil {
		if l := t.language(); l != "" {
			lang = l
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       t.settings.Model,
		Temperature: t.settings.Temperature,
		N:           1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Respond in %s. User query: %s", lang, text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	log.Debug().Str("model", req.Model).Str("language", lang).Msg("creating chat completion")
	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &transport.ServiceError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return parseAnswer(resp.Choices[0].Message.Content), nil
}

// parseAnswer decodes the model's JSON answer. Content that is not the expected object is
// kept as plain text with zero confidence.
func parseAnswer(content string) *transport.Response {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
	content = strings.TrimSpace(content)

	var ret transport.Response
	if err := json.Unmarshal([]byte(content), &ret); err != nil || strings.TrimSpace(ret.Response) == "" {
		log.Debug().Err(err).Msg("model answer is not structured, keeping raw text")
		return &transport.Response{
			Response: content,
			Sources:  []string{SourceName},
		}
	}
	ret.Confidence = transport.Clamp01(ret.Confidence)
	if len(ret.Sources) == 0 {
		ret.Sources = []string{SourceName}
	}
	if len(ret.SuggestedQuestions) > 3 {
		ret.SuggestedQuestions = ret.SuggestedQuestions[:3]
	}
	return &ret
}
