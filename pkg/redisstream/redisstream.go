// Package redisstream builds watermill publishers and subscribers backed by Redis Streams,
// used to share session events and diagnostics between processes.
package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/go-go-golems/can-assistant/pkg/events"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client wraps the redis connection shared by the publishers and subscribers it builds.
type Client struct {
	settings Settings
	client   redis.UniversalClient
}

func NewClient(s Settings) *Client {
	return &Client{
		settings: s,
		client: redis.NewClient(&redis.Options{
			Addr:     s.Addr,
			Password: s.Password,
			DB:       s.DB,
		}),
	}
}

// Ping checks that redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return errors.Wrapf(c.client.Ping(ctx).Err(), "could not reach redis at %s", c.settings.Addr)
}

func (c *Client) NewPublisher() (message.Publisher, error) {
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     c.client,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, events.NewWatermillLogger(log.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "could not create redis stream publisher")
	}
	return pub, nil
}

// NewSubscriber returns a subscriber in the configured consumer group. An empty group
// falls back to fan-out reads.
func (c *Client) NewSubscriber() (message.Subscriber, error) {
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        c.client,
		Unmarshaller:  rstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: c.settings.Group,
		Consumer:      c.settings.Consumer,
	}, events.NewWatermillLogger(log.Logger))
	if err != nil {
		return nil, errors.Wrap(err, "could not create redis stream subscriber")
	}
	return sub, nil
}

// RouterOptions returns the events router options that put session events on redis when
// enabled, and none otherwise.
func (c *Client) RouterOptions() ([]events.RouterOption, error) {
	if !c.settings.Enabled {
		return nil, nil
	}
	pub, err := c.NewPublisher()
	if err != nil {
		return nil, err
	}
	sub, err := c.NewSubscriber()
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return []events.RouterOption{
		events.WithPubSub(pub, sub),
		events.WithTopicPreparer(c.EnsureGroupAtTail),
	}, nil
}

// EnsureGroupAtTail creates the consumer group of stream at the tail ($) if it does not
// exist yet, so that a first subscribe does not replay history.
func (c *Client) EnsureGroupAtTail(ctx context.Context, stream string) error {
	if c.settings.Group == "" {
		return nil
	}
	err := c.client.XGroupCreateMkStream(ctx, stream, c.settings.Group, "$").Err()
	if err != nil {
		if isBusyGroup(err) {
			return nil
		}
		return errors.Wrapf(err, "could not create consumer group %s on %s", c.settings.Group, stream)
	}
	log.Debug().Str("stream", stream).Str("group", c.settings.Group).Msg("created redis consumer group at $ (tail)")
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (c *Client) Close() error {
	return c.client.Close()
}
