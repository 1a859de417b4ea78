// Package events is a small in-process pub/sub bus. The daemon emits
// lifecycle events (paper indexed, file imported) and interested parts of
// the process subscribe without holding references to each other.
package events

import (
	"sync"

	"github.com/paperdex/paperdex/internal/log"
)

const (
	PaperIndexed  = "paper-indexed"
	PaperImported = "paper-imported"
	PaperRenamed  = "paper-renamed"
)

// Event is a named payload. Payload types are per-event and documented at
// the emit site.
type Event struct {
	Name    string
	Payload any
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	all    map[int]chan Event
	nextID int
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]chan Event),
		all:  make(map[int]chan Event),
	}
}

// Subscribe returns a channel receiving every event with the given name.
// The channel is buffered; a subscriber that stops draining loses events
// rather than blocking emitters.
func (b *Bus) Subscribe(name string) <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[name] = append(b.subs[name], ch)
	b.mu.Unlock()
	return ch
}

// SubscribeAll returns a channel receiving every event regardless of name,
// and a cancel function that releases the subscription. The channel is not
// closed on cancel; callers stop reading instead.
func (b *Bus) SubscribeAll() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.all[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.all, id)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Emit delivers the event to all current subscribers without blocking.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	subs := b.subs[name]
	targets := make([]chan Event, 0, len(subs)+len(b.all))
	targets = append(targets, subs...)
	for _, ch := range b.all {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- Event{Name: name, Payload: payload}:
		default:
			log.Debugf("dropping %s event for slow subscriber", name)
		}
	}
}
