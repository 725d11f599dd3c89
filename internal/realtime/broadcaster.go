package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Broadcaster fans an event out to everyone subscribed to an organization's
// channel. Implementations are fire-and-forget sinks; callers never treat a
// broadcast failure as fatal.
type Broadcaster interface {
	Broadcast(ctx context.Context, orgID uuid.UUID, event string, payload interface{}) error
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// RedisBroadcaster publishes JSON envelopes on company:<id> channels. Socket
// gateways subscribe to these and forward to connected clients.
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, orgID uuid.UUID, event string, payload interface{}) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("company:%s", orgID)
	return b.client.Publish(ctx, channel, data).Err()
}

// Noop drops every broadcast. Used in tests and when Redis is unavailable.
type Noop struct{}

func (Noop) Broadcast(context.Context, uuid.UUID, string, interface{}) error {
	return nil
}

var (
	_ Broadcaster = (*RedisBroadcaster)(nil)
	_ Broadcaster = Noop{}
)
