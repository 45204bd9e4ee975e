package webchat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/can-assistant/pkg/conversation"
	"github.com/go-go-golems/can-assistant/pkg/dispatcher"
	"github.com/go-go-golems/can-assistant/pkg/events"
	"github.com/go-go-golems/can-assistant/pkg/i18n"
	"github.com/go-go-golems/can-assistant/pkg/loading"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/yuin/goldmark"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 16 * 1024
	outboundBuffer = 64
)

// connection is one browser tab: it owns one session for the lifetime of the socket.
type connection struct {
	id         string
	conn       *websocket.Conn
	localizer  *i18n.Localizer
	dispatcher *dispatcher.Dispatcher
	router     *dispatcher.SuggestedRouter
	events     <-chan *message.Message
	markdown   goldmark.Markdown
	logger     zerolog.Logger

	out chan ServerFrame
}

// serve runs the connection until the socket closes or ctx is done, then tears the session
// down.
func (c *connection) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	var wg conc.WaitGroup
	defer func() {
		cancel()
		c.dispatcher.Close()
		_ = c.conn.Close()
		wg.Wait()
		c.logger.Debug().Msg("websocket session closed")
	}()

	c.enqueue(ctx, c.hello())

	wg.Go(func() { c.writeLoop(ctx, cancel) })
	wg.Go(func() { c.pumpEvents(ctx) })
	c.readLoop(ctx, &wg)
}

func (c *connection) hello() ServerFrame {
	msgs := c.dispatcher.Session().Messages()
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, NewMessageView(c.markdown, m))
	}
	return ServerFrame{
		Type:      FrameHello,
		SessionID: c.id,
		Language:  string(c.localizer.Language()),
		Messages:  views,
	}
}

func (c *connection) enqueue(ctx context.Context, f ServerFrame) {
	select {
	case c.out <- f:
	case <-ctx.Done():
	}
}

func (c *connection) readLoop(ctx context.Context, wg *conc.WaitGroup) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		f, err := DecodeClientFrame(data)
		if err != nil {
			c.enqueue(ctx, ServerFrame{Type: FrameError, Error: err.Error()})
			continue
		}

		switch f.Type {
		case FrameSubmit:
			text := f.Text
			wg.Go(func() { c.dispatcher.Submit(ctx, text) })
		case FrameSuggested:
			text := f.Text
			wg.Go(func() { c.router.ChooseSuggested(ctx, text) })
		case FrameSuggestedIndex:
			i := f.Index
			wg.Go(func() { c.router.ChooseIndex(ctx, i) })
		case FrameLanguage:
			if err := c.localizer.SetLanguage(i18n.Language(f.Language)); err != nil {
				c.enqueue(ctx, ServerFrame{Type: FrameError, Error: err.Error()})
				continue
			}
			c.enqueue(ctx, ServerFrame{Type: FrameLanguage, Language: f.Language})
		}
	}
}

// pumpEvents turns the session's events into frames.
func (c *connection) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			msg.Ack()
			e, err := events.NewEventFromJSON(msg.Payload)
			if err != nil {
				c.logger.Error().Err(err).Msg("could not decode session event")
				continue
			}
			c.enqueue(ctx, c.frameFor(e))
		}
	}
}

func (c *connection) frameFor(e events.Event) ServerFrame {
	switch e.Type {
	case events.EventTypeMessageAppended:
		v := NewMessageView(c.markdown, *e.Message)
		return ServerFrame{Type: FrameMessage, Message: &v}
	case events.EventTypeLoadingChanged:
		return loadingFrame(*e.State, c.localizer.T(e.State.LabelKey()))
	default:
		return ServerFrame{Type: FrameScroll}
	}
}

func (c *connection) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = c.conn.Close()
			return
		case f := <-c.out:
			b, err := json.Marshal(f)
			if err != nil {
				c.logger.Error().Err(err).Str("frame", f.Type).Msg("could not encode frame")
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.logger.Warn().Err(err).Msg("websocket write failed, dropping connection")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// newSessionParts builds the per-connection session, loading machine and dispatcher.
func newSessionParts(
	localizer *i18n.Localizer,
	publisher *events.Publisher,
	delays [2]time.Duration,
	clock loading.Clock,
) (*conversation.Session, *loading.Machine) {
	session := conversation.NewSession(conversation.BuildWelcome(localizer))
	opts := []loading.Option{loading.WithListener(publisher.LoadingChanged)}
	if delays[0] > 0 && delays[1] > 0 {
		opts = append(opts, loading.WithDelays(delays[0], delays[1]))
	}
	if clock != nil {
		opts = append(opts, loading.WithClock(clock))
	}
	return session, loading.NewMachine(opts...)
}
