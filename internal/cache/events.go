package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CartEvents fans out cart changes on the Redis channel "cart:<user id>".
type CartEvents struct {
	client *redis.Client
}

func NewCartEvents(client *redis.Client) *CartEvents {
	return &CartEvents{client: client}
}

func cartChannel(userID uuid.UUID) string { return "cart:" + userID.String() }

func (e *CartEvents) Publish(ctx context.Context, userID uuid.UUID, event string) error {
	if e == nil || e.client == nil {
		return nil
	}
	return e.client.Publish(ctx, cartChannel(userID), event).Err()
}

// Subscribe streams event names for userID until ctx is done or stop is
// called. Without Redis the channel never delivers.
func (e *CartEvents) Subscribe(ctx context.Context, userID uuid.UUID) (events <-chan string, stop func()) {
	out := make(chan string)
	if e == nil || e.client == nil {
		return out, func() {}
	}

	pubsub := e.client.Subscribe(ctx, cartChannel(userID))
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel
}
