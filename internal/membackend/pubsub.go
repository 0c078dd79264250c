// Copyright 2025 James Ross
package membackend

import (
	"context"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

// PublishEvent invokes every handler subscribed to channel, in
// registration order, synchronously on the caller's goroutine. Per
// spec §9's fairness note, handlers on the same channel run serially
// so a slow handler cannot reorder events relative to one another.
func (b *Backend) PublishEvent(_ context.Context, channel string, event backend.LifecycleEvent) error {
	b.mu.Lock()
	handlers := make([]backend.EventHandler, len(b.subs[channel]))
	for i, s := range b.subs[channel] {
		handlers[i] = s.handler
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *Backend) SubscribeEvent(_ context.Context, channel string, handler backend.EventHandler) (backend.Unsubscribe, error) {
	b.mu.Lock()
	b.subsSeq++
	id := b.subsSeq
	b.subs[channel] = append(b.subs[channel], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, s := range subs {
			if s.id == id {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}, nil
}
