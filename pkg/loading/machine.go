// Package loading implements the staged loading indicator that accompanies every outbound
// request: Idle → Thinking, then Searching and Processing on fixed delays, back to Idle when
// the request settles.
package loading

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultSearchingAfter  = 1000 * time.Millisecond
	DefaultProcessingAfter = 2000 * time.Millisecond
)

// Listener is called for every state transition, in transition order. It runs after the
// machine lock has been released, so it may read State.
type Listener func(State)

type Machine struct {
	mu sync.Mutex
	// notifyMu is taken before mu is released and keeps listener calls in transition order
	notifyMu sync.Mutex

	clock           Clock
	searchingAfter  time.Duration
	processingAfter time.Duration

	state State
	// gen identifies the current request; stage timers of an older request are no-ops.
	gen       uint64
	timers    []Timer
	listeners []Listener
	closed    atomic.Bool
}

type Option func(*Machine)

func WithClock(c Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// WithDelays sets the offsets, relative to Start, of the Searching and Processing stages.
func WithDelays(searchingAfter, processingAfter time.Duration) Option {
	return func(m *Machine) {
		m.searchingAfter = searchingAfter
		m.processingAfter = processingAfter
	}
}

func WithListener(l Listener) Option {
	return func(m *Machine) {
		m.listeners = append(m.listeners, l)
	}
}

func NewMachine(options ...Option) *Machine {
	m := &Machine{
		clock:           RealClock{},
		searchingAfter:  DefaultSearchingAfter,
		processingAfter: DefaultProcessingAfter,
	}
	for _, o := range options {
		o(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start moves Idle → Thinking and schedules the two stage advances. It returns false and
// changes nothing if a request is already in flight or the machine is closed.
func (m *Machine) Start() bool {
	m.mu.Lock()
	if m.closed.Load() || m.state != Idle {
		m.mu.Unlock()
		return false
	}

	m.gen++
	gen := m.gen
	m.timers = append(m.timers,
		m.clock.AfterFunc(m.searchingAfter, func() { m.advance(gen, Searching) }),
		m.clock.AfterFunc(m.processingAfter, func() { m.advance(gen, Processing) }),
	)
	m.transitionAndUnlock(Thinking)
	return true
}

func (m *Machine) advance(gen uint64, to State) {
	m.mu.Lock()
	if m.closed.Load() || gen != m.gen || m.state == Idle {
		m.mu.Unlock()
		log.Trace().Str("component", "loading").Str("stage", to.String()).Msg("dropping stale stage advance")
		return
	}
	// never move backwards if timers fire out of order
	if to <= m.state {
		m.mu.Unlock()
		return
	}
	m.transitionAndUnlock(to)
}

// Complete cancels the pending stage advances and forces Idle. It returns true exactly once
// per started request.
func (m *Machine) Complete() bool {
	m.mu.Lock()
	m.stopTimersLocked()
	// bump the generation so a timer that already fired but has not yet taken the lock
	// finds itself stale
	m.gen++
	if m.closed.Load() || m.state == Idle {
		m.mu.Unlock()
		return false
	}
	m.transitionAndUnlock(Idle)
	return true
}

// Close tears the machine down: pending timers are cancelled and no further transition or
// notification happens.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed.Load() {
		return
	}
	m.stopTimersLocked()
	m.gen++
	m.closed.Store(true)
	m.state = Idle
	m.listeners = nil
}

func (m *Machine) stopTimersLocked() {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
}

// transitionAndUnlock sets s with mu held, releases mu and then notifies the listeners.
func (m *Machine) transitionAndUnlock(s State) {
	m.state = s
	listeners := m.listeners
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()

	for _, l := range listeners {
		if m.closed.Load() {
			return
		}
		l(s)
	}
}
