package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

// Router owns the pub/sub pair session events travel on and the watermill router running
// their handlers. By default an in-memory channel that delivers in publish order is used.
type Router struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
	prepare    TopicPreparer
}

// TopicPreparer readies the backing store of a topic before it is first subscribed to.
type TopicPreparer func(ctx context.Context, topic string) error

type RouterOption func(*Router)

func WithLogger(logger watermill.LoggerAdapter) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithVerbose(verbose bool) RouterOption {
	return func(r *Router) {
		if verbose {
			r.logger = NewWatermillLogger(log.Logger)
		}
	}
}

// WithPubSub replaces the in-memory channel, for instance with redis streams.
func WithPubSub(publisher message.Publisher, subscriber message.Subscriber) RouterOption {
	return func(r *Router) {
		r.Publisher = publisher
		r.Subscriber = subscriber
	}
}

func WithTopicPreparer(p TopicPreparer) RouterOption {
	return func(r *Router) {
		r.prepare = p
	}
}

func NewRouter(options ...RouterOption) (*Router, error) {
	ret := &Router{
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(ret)
	}

	if ret.Publisher == nil || ret.Subscriber == nil {
		goPubSub := gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, ret.logger)
		ret.Publisher = goPubSub
		ret.Subscriber = goPubSub
	}

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// PrepareTopic must be called before subscribing to topic. It is a no-op for the in-memory
// channel.
func (r *Router) PrepareTopic(ctx context.Context, topic string) error {
	if r.prepare == nil {
		return nil
	}
	return r.prepare(ctx, topic)
}

func (r *Router) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	r.router.AddNoPublisherHandler(name, topic, r.Subscriber, f)
}

func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	if err := r.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close publisher")
	}
	if err := r.router.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close router")
	}
	return nil
}

// HandlerFunc adapts a typed event callback to a watermill handler. Messages are acked before
// the callback runs so that a slow view never holds up the publisher.
func HandlerFunc(f func(Event) error) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()
		e, err := NewEventFromJSON(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload)).Msg("Failed to parse session event")
			return nil
		}
		log.Trace().Str("event", e.String()).Msg("Dispatching session event")
		return f(e)
	}
}
