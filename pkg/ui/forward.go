package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/can-assistant/pkg/events"
)

// ForwardFunc injects the session events received from watermill into the program.
func ForwardFunc(p *tea.Program) func(msg *message.Message) error {
	return events.HandlerFunc(func(e events.Event) error {
		p.Send(e)
		return nil
	})
}
