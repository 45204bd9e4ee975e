// Package events carries session activity (appended messages, scroll requests, loading
// stage changes) over watermill so that views can follow a session without sharing its
// locks.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypeMessageAppended EventType = "message-appended"
	EventTypeScrollToLatest  EventType = "scroll-to-latest"
	EventTypeLoadingChanged  EventType = "loading-changed"
)

const TopicPrefix = "can-assistant.session."

// Topic is the topic carrying the events of one session.
func Topic(sessionID string) string {
	return TopicPrefix + sessionID
}

type Event struct {
	Type      EventType             `json:"type"`
	SessionID string                `json:"session_id"`
	Message   *conversation.Message `json:"message,omitempty"`
	State     *loading.State        `json:"state,omitempty"`
}

func NewMessageAppended(sessionID string, m conversation.Message) Event {
	return Event{Type: EventTypeMessageAppended, SessionID: sessionID, Message: &m}
}

func NewScrollToLatest(sessionID string) Event {
	return Event{Type: EventTypeScrollToLatest, SessionID: sessionID}
}

func NewLoadingChanged(sessionID string, s loading.State) Event {
	return Event{Type: EventTypeLoadingChanged, SessionID: sessionID, State: &s}
}

func (e Event) String() string {
	switch e.Type {
	case EventTypeMessageAppended:
		if e.Message != nil {
			return fmt.Sprintf("%s(%s #%d)", e.Type, e.Message.Role, e.Message.ID)
		}
	case EventTypeLoadingChanged:
		if e.State != nil {
			return fmt.Sprintf("%s(%s)", e.Type, e.State)
		}
	case EventTypeScrollToLatest:
	}
	return string(e.Type)
}

func NewEventFromJSON(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, errors.Wrap(err, "could not decode session event")
	}
	switch e.Type {
	case EventTypeMessageAppended:
		if e.Message == nil {
			return Event{}, errors.New("message-appended event without message")
		}
	case EventTypeLoadingChanged:
		if e.State == nil {
			return Event{}, errors.New("loading-changed event without state")
		}
	case EventTypeScrollToLatest:
	default:
		return Event{}, errors.Errorf("unknown session event type %q", e.Type)
	}
	return e, nil
}
