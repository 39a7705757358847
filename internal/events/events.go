// Package events carries question change notifications between API
// instances over Redis Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

// DefaultChannel is the Pub/Sub channel used when none is configured.
const DefaultChannel = "trivia:question-events"

const publishTimeout = 2 * time.Second

// Broadcaster delivers a message to locally connected feed clients.
type Broadcaster interface {
	BroadcastAll(msg ws.Message) error
}

// Publisher sends question events to the shared channel. Every instance,
// including this one, receives them back through its Relay.
type Publisher struct {
	redis   *redis.Client
	channel string
	local   Broadcaster
	logger  zerolog.Logger
}

// NewPublisher creates a Pub/Sub publisher. local receives the message
// directly when Redis cannot be reached.
func NewPublisher(client *redis.Client, channel string, local Broadcaster, logger zerolog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		redis:   client,
		channel: channel,
		local:   local,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// BroadcastAll publishes msg on the channel.
func (p *Publisher) BroadcastAll(msg ws.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.redis.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.Warn().Err(err).Str("type", msg.Type).Msg("publish failed, delivering to local subscribers only")
		if p.local == nil {
			return err
		}
		return p.local.BroadcastAll(msg)
	}
	return nil
}

// Relay listens on the channel and forwards question events to the local hub.
type Relay struct {
	redis   *redis.Client
	hub     Broadcaster
	channel string
	logger  zerolog.Logger
}

func NewRelay(client *redis.Client, hub Broadcaster, channel string, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Relay{
		redis:   client,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "event_relay").Logger(),
	}
}

// Run subscribes to the channel and blocks until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.redis == nil || r.hub == nil {
		return nil
	}

	sub := r.redis.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Payload)
		}
	}
}

func (r *Relay) forward(payload string) {
	var msg ws.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn().Err(err).Msg("failed to decode question event")
		return
	}

	switch msg.Type {
	case ws.TypeQuestionCreated, ws.TypeQuestionDeleted:
	default:
		r.logger.Debug().Str("type", msg.Type).Msg("ignoring unknown event type")
		return
	}

	if err := r.hub.BroadcastAll(msg); err != nil {
		r.logger.Debug().Err(err).Str("type", msg.Type).Msg("event not delivered to every subscriber")
	}
}
