package catalog

import (
	"context"
	"sync"
	"time"
)

// UpdateKind labels the payload carried by a catalog update.
type UpdateKind string

const (
	// UpdateKindCategories signals a fresh category listing.
	UpdateKindCategories UpdateKind = "categories"
	// UpdateKindAppCounts signals fresh per-category app counts.
	UpdateKindAppCounts UpdateKind = "app-counts"
	// UpdateKindFeaturedApps signals a fresh featured-app listing.
	UpdateKindFeaturedApps UpdateKind = "featured-apps"
)

// Update is re-emitted to subscribers on every successful reload of the
// corresponding listing. Only the field matching Kind is populated.
type Update struct {
	Kind       UpdateKind       `json:"kind"`
	Categories []Category       `json:"categories,omitempty"`
	AppCounts  map[string]int64 `json:"appCounts,omitempty"`
	Apps       []App            `json:"apps,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Dispatcher broadcasts catalog updates to subscribed consumers. Slow subscribers
// drop updates rather than block the publisher.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	stream chan Update
}

// NewDispatcher constructs a dispatcher with a small per-subscriber buffer.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[int64]*subscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a consumer. The subscription is released when ctx is done or
// the returned cancel function runs.
func (d *Dispatcher) Subscribe(ctx context.Context) (<-chan Update, func()) {
	sub := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Update, d.bufferSize),
	}
	d.mu.Lock()
	d.subscribers[sub.id] = sub
	d.mu.Unlock()

	cleanup := func() {
		d.mu.Lock()
		delete(d.subscribers, sub.id)
		d.mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return sub.stream, cleanup
}

// Publish delivers an update to every subscriber whose buffer has room.
func (d *Dispatcher) Publish(update Update) {
	if update.Kind == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*subscriber, 0, len(d.subscribers))
	for _, sub := range d.subscribers {
		copies = append(copies, sub)
	}
	d.mu.RUnlock()
	for _, sub := range copies {
		select {
		case sub.stream <- update:
		default:
		}
	}
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}
