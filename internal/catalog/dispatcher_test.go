package catalog

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := dispatcher.Subscribe(ctx)
	defer unsubscribe()

	dispatcher.Publish(Update{Kind: UpdateKindAppCounts, AppCounts: map[string]int64{"games": 3}})

	select {
	case update := <-updates:
		if update.Kind != UpdateKindAppCounts || update.AppCounts["games"] != 3 {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected the update to be delivered")
	}
}

func TestDispatcherDropsWhenSubscriberBufferIsFull(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := dispatcher.Subscribe(ctx)
	defer unsubscribe()

	// Publish must never block, even well past the buffer size.
	for i := 0; i < 100; i++ {
		dispatcher.Publish(Update{Kind: UpdateKindFeaturedApps})
	}

	if len(updates) > 16 {
		t.Fatalf("expected overflow to be dropped, buffered %d", len(updates))
	}
}

func TestDispatcherIgnoresUnkindedUpdates(t *testing.T) {
	dispatcher := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := dispatcher.Subscribe(ctx)
	defer unsubscribe()

	dispatcher.Publish(Update{})

	select {
	case update := <-updates:
		t.Fatalf("expected no delivery for an unkinded update, got %+v", update)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcherUnsubscribeStopsDelivery(t *testing.T) {
	dispatcher := NewDispatcher()
	updates, unsubscribe := dispatcher.Subscribe(context.Background())
	unsubscribe()

	dispatcher.Publish(Update{Kind: UpdateKindCategories})

	select {
	case <-updates:
		t.Fatalf("expected no delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
