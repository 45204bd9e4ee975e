// Package transport defines the call that sends one user utterance to the remote assistant
// service and returns its structured answer.
package transport

import (
	"context"
	"fmt"
	"math"
)

// Request is the body the assistant service expects.
type Request struct {
	Content  string `json:"content"`
	Role     string `json:"role"`
	Language string `json:"language,omitempty"`
}

// Response is the structured answer of the assistant service.
type Response struct {
	Response           string   `json:"response"`
	Error              string   `json:"error,omitempty"`
	Confidence         float64  `json:"confidence"`
	Sources            []string `json:"sources"`
	Categories         []string `json:"categories,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// Transport sends text to the assistant service. Implementations own any timeout policy;
// callers never retry.
type Transport interface {
	SendMessage(ctx context.Context, text string) (*Response, error)
}

// HealthChecker is implemented by transports that can probe the service.
type HealthChecker interface {
	Health(ctx context.Context) (*Health, error)
}

type Health struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// LanguageFunc returns the language the answer should be written in.
type LanguageFunc func() string

// ServiceError is returned when the service answered but reported a failure.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("assistant service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("assistant service error: %s", e.Message)
}

// Clamp01 clips a confidence into [0,1].
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
