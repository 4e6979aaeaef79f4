package notifications

import (
	"context"
	"runtime/debug"

	"freebites/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// BoardChannel is the Redis pub/sub channel carrying board events between
// server instances.
const BoardChannel = "board:events"

// Notifier publishes board events into Redis so that every server instance
// can fan them out to its own websocket clients. With no Redis client it
// degrades to a no-op and the caller falls back to local broadcast.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether cross-instance fan-out is available.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishBroadcast sends a board event payload to all server instances.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return nil
	}
	if err := n.rdb.Publish(ctx, BoardChannel, payload).Err(); err != nil {
		middleware.RedisErrors.WithLabelValues("publish").Inc()
		return err
	}
	return nil
}

// StartSubscriber subscribes to the board channel and calls onMessage for
// each incoming payload until ctx is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, BoardChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in board subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
