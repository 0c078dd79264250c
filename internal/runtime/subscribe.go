// Copyright 2025 James Ross
package runtime

import (
	"context"
	"strings"

	"github.com/ignitehq/igniter-jobs/internal/backend"
)

// Subscribe listens to every lifecycle event this runtime's scope
// publishes, with no type-prefix filtering. Queue- and job-level
// subscriptions (QueueAccessor.Subscribe, JobAccessor.Subscribe) layer
// a prefix filter on top of this same entry point.
func (rt *Runtime) Subscribe(ctx context.Context, handler backend.EventHandler) (backend.Unsubscribe, error) {
	return rt.adapter.SubscribeEvent(ctx, rt.eventsChannel(), handler)
}

// subscribeWithPrefix wraps handler so it only fires for events whose
// Type starts with prefix, matching the "<queue>:" and
// "<queue>:<job>:" filters spec §4.10 describes for the queue- and
// job-level accessors.
func (rt *Runtime) subscribeWithPrefix(ctx context.Context, prefix string, handler backend.EventHandler) (backend.Unsubscribe, error) {
	filtered := func(event backend.LifecycleEvent) {
		if strings.HasPrefix(event.Type, prefix) {
			handler(event)
		}
	}
	return rt.adapter.SubscribeEvent(ctx, rt.eventsChannel(), filtered)
}
