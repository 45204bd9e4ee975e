// Package dispatcher ties user input to the assistant transport: it validates a submission,
// appends to the session, drives the loading indicator and reconciles the answer or the
// failure back into the session.
package dispatcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/diagnostics"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/go-go-golems/can-assistant/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

const ErrorTextKey = "error"

var ErrEmptyResponse = errors.New("assistant service returned an empty response")

// Notifier is told about every session mutation, in append order.
type Notifier interface {
	MessageAppended(m conversation.Message)
	ScrollToLatest()
}

type nopNotifier struct{}

func (nopNotifier) MessageAppended(conversation.Message) {}
func (nopNotifier) ScrollToLatest()                      {}

// Submitter is the input side of a Dispatcher, as seen by views.
type Submitter interface {
	Submit(ctx context.Context, rawText string) bool
}

type Dispatcher struct {
	mu sync.Mutex

	sessionID   string
	session     *conversation.Session
	loading     *loading.Machine
	transport   transport.Transport
	translator  i18n.Translator
	diagnostics diagnostics.Sink
	notifier    Notifier
	now         func() time.Time

	closed bool
	// cancel aborts the in-flight transport call
	cancel context.CancelFunc
}

var _ Submitter = &Dispatcher{}

type Option func(*Dispatcher)

func WithSessionID(id string) Option {
	return func(d *Dispatcher) {
		d.sessionID = id
	}
}

func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) {
		d.notifier = n
	}
}

func WithDiagnostics(s diagnostics.Sink) Option {
	return func(d *Dispatcher) {
		d.diagnostics = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates the dispatcher of a session. The dispatcher becomes the only writer of
// session and the only caller of Start/Complete on machine.
func New(
	session *conversation.Session,
	machine *loading.Machine,
	t transport.Transport,
	translator i18n.Translator,
	options ...Option,
) *Dispatcher {
	d := &Dispatcher{
		session:     session,
		loading:     machine,
		transport:   t,
		translator:  translator,
		diagnostics: diagnostics.Discard,
		notifier:    nopNotifier{},
		now:         time.Now,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

func (d *Dispatcher) SessionID() string {
	return d.sessionID
}

func (d *Dispatcher) Session() *conversation.Session {
	return d.session
}

func (d *Dispatcher) LoadingState() loading.State {
	return d.loading.State()
}

// Submit sends rawText to the assistant and blocks until the answer or the error message has
// been appended. It returns false, without touching anything, when the trimmed text is
// empty, a request is already in flight, or the dispatcher is closed.
func (d *Dispatcher) Submit(ctx context.Context, rawText string) bool {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return false
	}

	userMessage, req, ok := d.begin(ctx, text)
	if !ok {
		log.Debug().Str("session_id", d.sessionID).Msg("submission rejected, request already in flight")
		return false
	}
	defer func() {
		req.cancel()
		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
		d.loading.Complete()
	}()

	log.Debug().Str("session_id", d.sessionID).Uint64("message_id", userMessage.ID).Msg("sending message")
	resp, err := d.send(req.ctx, text)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Debug().Str("session_id", d.sessionID).Msg("dropping result of a torn down session")
		return true
	}

	if err != nil {
		m := d.session.AppendError(d.translator.T(ErrorTextKey))
		d.notify(func(n Notifier) { n.MessageAppended(m) })
		d.diagnostics.Report(ctx, diagnostics.Report{
			SessionID: d.sessionID,
			Operation: "send_message",
			Err:       err,
			Time:      d.now(),
		})
		return true
	}

	m := d.session.AppendAssistant(
		resp.Response,
		transport.Clamp01(resp.Confidence),
		resp.Sources,
		resp.SuggestedQuestions,
	)
	d.notify(func(n Notifier) { n.MessageAppended(m) })
	d.notify(func(n Notifier) { n.ScrollToLatest() })
	return true
}

type request struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// begin runs the gate check, appends the user message and starts the loading machine as one
// step with respect to other submissions.
func (d *Dispatcher) begin(ctx context.Context, text string) (conversation.Message, request, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.loading.State() != loading.Idle {
		return conversation.Message{}, request{}, false
	}
	userMessage := d.session.AppendUser(text)
	d.notify(func(n Notifier) { n.MessageAppended(userMessage) })
	d.loading.Start()
	reqCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	return userMessage, request{ctx: reqCtx, cancel: cancel}, true
}

// notify calls the notifier with d.mu held. A panicking notifier is logged and does not
// interrupt the submission.
func (d *Dispatcher) notify(f func(Notifier)) {
	var pc panics.Catcher
	pc.Try(func() { f(d.notifier) })
	if r := pc.Recovered(); r != nil {
		log.Error().Err(r.AsError()).Str("session_id", d.sessionID).Msg("session notifier panicked")
	}
}

// send calls the transport, turning a panic or a service-reported error into an error.
func (d *Dispatcher) send(ctx context.Context, text string) (resp *transport.Response, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		resp, err = d.transport.SendMessage(ctx, text)
	})
	if r := pc.Recovered(); r != nil {
		return nil, errors.Wrap(r.AsError(), "transport panicked")
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrEmptyResponse
	}
	if resp.Error != "" {
		return nil, &transport.ServiceError{Message: resp.Error}
	}
	return resp, nil
}

// Close tears the session down. A pending transport call is cancelled and its result, as
// well as pending loading stages, are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.loading.Close()
}

func (d *Dispatcher) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
