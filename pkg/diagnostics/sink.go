// Package diagnostics receives the raw errors the conversation core hides from the user.
package diagnostics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultTopic = "can-assistant.diagnostics"

// Report describes one failure.
type Report struct {
	SessionID string
	Operation string
	Err       error
	Time      time.Time
}

type Sink interface {
	Report(ctx context.Context, r Report)
}

type SinkFunc func(ctx context.Context, r Report)

func (f SinkFunc) Report(ctx context.Context, r Report) {
	f(ctx, r)
}

// LogSink writes reports to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

var _ Sink = &LogSink{}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Report(_ context.Context, r Report) {
	s.logger.Error().
		Err(r.Err).
		Str("component", "diagnostics").
		Str("session_id", r.SessionID).
		Str("operation", r.Operation).
		Time("at", r.Time).
		Msg("chat request failed")
}

type reportPayload struct {
	SessionID string    `json:"session_id"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Time      time.Time `json:"time"`
}

// PublisherSink publishes reports as JSON on a watermill topic, typically a Redis stream.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
	fallback  zerolog.Logger
}

var _ Sink = &PublisherSink{}

func NewPublisherSink(publisher message.Publisher, topic string, fallback zerolog.Logger) *PublisherSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PublisherSink{publisher: publisher, topic: topic, fallback: fallback}
}

func (s *PublisherSink) Report(ctx context.Context, r Report) {
	if err := s.publish(ctx, r); err != nil {
		s.fallback.Warn().Err(err).Str("topic", s.topic).Msg("failed to publish diagnostics report")
	}
}

func (s *PublisherSink) publish(ctx context.Context, r Report) error {
	p := reportPayload{
		SessionID: r.SessionID,
		Operation: r.Operation,
		Time:      r.Time,
	}
	if r.Err != nil {
		p.Error = r.Err.Error()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to marshal diagnostics report")
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.SetContext(ctx)
	return s.publisher.Publish(s.topic, msg)
}

// Multi fans a report out to every sink.
type Multi []Sink

func (m Multi) Report(ctx context.Context, r Report) {
	for _, s := range m {
		if s != nil {
			s.Report(ctx, r)
		}
	}
}

// Discard drops every report.
var Discard Sink = SinkFunc(func(context.Context, Report) {})
