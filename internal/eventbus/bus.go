// Package eventbus is a process-wide, single-threaded publish/subscribe
// bus. It is adapted from the teacher gateway's InMemoryBus: panic
// recovery around each handler is kept, but dispatch is synchronous
// and strictly publication-ordered instead of channel-buffered and
// parallel, because the retry-attempt/retry-exhausted ordering
// invariants (P4, P5) require it.
package eventbus

import (
	"sync"

	"github.com/spaguard/spaguard/internal/diagnostics"
)

// Event is the tagged union of everything the bus carries. Each
// concrete event type implements Name with its own discriminator.
type Event interface {
	Name() string
}

// Handler receives every event published after it subscribes.
type Handler func(Event)

// Bus is a synchronous, in-order publish/subscribe channel. The zero
// value is not usable; use New.
type Bus struct {
	mu          sync.Mutex
	subscribers []*subscription
	nextID      uint64
}

type subscription struct {
	id      uint64
	handler Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn to receive every event published after this
// call returns. The returned func removes the subscription; calling it
// more than once is a no-op.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, &subscription{id: id, handler: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subscribers {
				if s.id == id {
					b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish synchronously invokes every subscriber registered at the
// moment Publish was called, in registration order. Subscribers added
// during this call do not receive this event. Subscribers unsubscribed
// during this call — by an earlier handler in this same Publish — do
// not receive it either, even though the delivery order was fixed
// up front: liveness is rechecked against the live subscriber set
// immediately before each invocation. A handler panic is recovered and
// reported to diagnostics rather than aborting delivery to the
// remaining subscribers.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subscribers))
	copy(snapshot, b.subscribers)
	b.mu.Unlock()

	for _, s := range snapshot {
		if !b.isLive(s.id) {
			continue
		}
		invoke(s.handler, event)
	}
}

func (b *Bus) isLive(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subscribers {
		if s.id == id {
			return true
		}
	}
	return false
}

func invoke(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			diagnostics.ReportPanic("eventbus", r)
		}
	}()
	handler(event)
}

var (
	defaultMu  sync.RWMutex
	defaultBus = New()
)

// Default returns the process-wide bus used by orchestrator, listeners,
// and lazyretry unless a component is constructed with its own Bus.
func Default() *Bus {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultBus
}

// ResetDefaultForTests replaces the process-wide bus with a fresh,
// subscriber-free one.
func ResetDefaultForTests() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultBus = New()
}
