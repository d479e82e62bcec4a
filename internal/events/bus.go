// Package events is the in-process notification bus that links local
// edits, the sync engine and the user interface.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/workledger/internal/logging"
	"github.com/google/uuid"
)

// Type names an event kind.
type Type string

const (
	EntryChanged      Type = "entry-changed"
	EntryDeleted      Type = "entry-deleted"
	SyncStatusChanged Type = "sync-status-changed"
)

// Origin tells subscribers who produced an entry event. The sync engine
// ignores sync-origin events so that merged records are not pushed back.
type Origin string

const (
	OriginLocal Origin = "local"
	OriginSync  Origin = "sync"
)

// Event is a single notification. EntryID is set for entry events, Data
// carries the payload of status events.
type Event struct {
	Type    Type
	EntryID string
	Origin  Origin
	Data    any
}

// Handler processes one event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	handler Handler
	types   map[Type]struct{}
}

// Bus fans events out to subscribers. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	order  []string
	logger logging.Logger
}

func NewBus(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Bus{subs: make(map[string]*subscription), logger: logger}
}

// Subscribe registers h for the given types, or for every type when none
// are given. The returned id is passed to Unsubscribe.
func (b *Bus) Subscribe(h Handler, types ...Type) string {
	sub := &subscription{handler: h}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.subs[id] = sub
	b.order = append(b.order, id)
	b.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription and reports whether it existed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[id]; !ok {
		return false
	}
	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Publish delivers e to matching subscribers in subscription order.
// A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		sub := b.subs[id]
		if sub.types != nil {
			if _, ok := sub.types[e.Type]; !ok {
				continue
			}
		}
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(ctx, "event handler panicked", "type", string(e.Type), "panic", fmt.Sprint(r))
		}
	}()
	h(ctx, e)
}
