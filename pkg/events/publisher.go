package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/rs/zerolog/log"
)

// Publisher publishes the activity of one session on its topic. It is the dispatcher's
// Notifier and, through LoadingChanged, a loading listener.
type Publisher struct {
	publisher message.Publisher
	sessionID string
	topic     string
}

var _ dispatcher.Notifier = &Publisher{}

func NewPublisher(publisher message.Publisher, sessionID string) *Publisher {
	return &Publisher{
		publisher: publisher,
		sessionID: sessionID,
		topic:     Topic(sessionID),
	}
}

func (p *Publisher) Topic() string {
	return p.topic
}

func (p *Publisher) MessageAppended(m conversation.Message) {
	p.publish(NewMessageAppended(p.sessionID, m))
}

func (p *Publisher) ScrollToLatest() {
	p.publish(NewScrollToLatest(p.sessionID))
}

// LoadingChanged has the signature of a loading.Listener.
func (p *Publisher) LoadingChanged(s loading.State) {
	p.publish(NewLoadingChanged(p.sessionID, s))
}

func (p *Publisher) publish(e Event) {
	b, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("event", e.String()).Msg("Failed to encode session event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set("session_id", p.sessionID)
	msg.Metadata.Set("type", string(e.Type))
	if err := p.publisher.Publish(p.topic, msg); err != nil {
		log.Warn().Err(err).Str("topic", p.topic).Str("event", e.String()).Msg("Failed to publish session event")
	}
}
