package loading

import (
	"strings"

	"github.com/pkg/errors"
)

// State is the cosmetic progress stage of the outstanding request of a session.
type State int

const (
	Idle State = iota
	Thinking
	Searching
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Thinking:
		return "thinking"
	case Searching:
		return "searching"
	case Processing:
		return "processing"
	default:
		return "unknown"
	}
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s != Idle
}

// LabelKey is the resource key of the label shown while in this state.
func (s State) LabelKey() string {
	switch s {
	case Thinking, Searching, Processing:
		return "loading." + s.String()
	default:
		return "loading.default"
	}
}

func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "idle":
		return Idle, nil
	case "thinking":
		return Thinking, nil
	case "searching":
		return Searching, nil
	case "processing":
		return Processing, nil
	}
	return Idle, errors.Errorf("unknown loading state %q", s)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
