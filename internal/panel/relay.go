package panel

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Relay feeds roster updates published on EventsChannel into the local hub,
// so every replica's screens see calls made on any replica.
type Relay struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewRelay(client *redis.Client, hub *Hub, logger *zap.Logger) *Relay {
	return &Relay{client: client, hub: hub, logger: logger}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, EventsChannel)
	defer sub.Close()

	if cached, err := r.client.Get(ctx, LastCalledKey).Bytes(); err == nil {
		r.hub.Broadcast(cached)
	}

	r.logger.Info("panel relay subscribed", zap.String("channel", EventsChannel))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				r.logger.Warn("panel relay channel closed")
				return
			}
			r.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
