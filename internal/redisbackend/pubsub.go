// Copyright 2025 James Ross
package redisbackend

import (
	"context"
	"encoding/json"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

func (b *Backend) PublishEvent(ctx context.Context, channel string, event backend.LifecycleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, payload).Err()
}

// SubscribeEvent opens a dedicated Redis Pub/Sub connection per
// subscription and decodes each message back into a LifecycleEvent
// before invoking handler. The returned Unsubscribe closes that
// connection.
func (b *Backend) SubscribeEvent(ctx context.Context, channel string, handler backend.EventHandler) (backend.Unsubscribe, error) {
	pubsub := b.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ch := pubsub.Channel()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event backend.LifecycleEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err == nil {
					handler(event)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = pubsub.Close()
	}, nil
}
