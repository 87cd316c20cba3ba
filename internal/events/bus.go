package events

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Bus is an in-memory Dispatcher. Listeners run synchronously, in subscription order, on the
// goroutine that dispatches.
type Bus struct {
	listeners       map[string][]Listener
	mu              sync.RWMutex
	dispatchedCount atomic.Uint64
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Subscribe registers listener for events called name.
func (b *Bus) Subscribe(name string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners[name] = append(b.listeners[name], listener)
}

// Dispatch hands event to every listener of name.
func (b *Bus) Dispatch(ctx context.Context, event *TransactionEvent, name string) {
	b.mu.RLock()
	listeners := slices.Clone(b.listeners[name])
	b.mu.RUnlock()

	b.dispatchedCount.Add(1)

	for _, listener := range listeners {
		listener(ctx, event)
	}
}

// Dispatched returns the number of dispatched events.
func (b *Bus) Dispatched() uint64 {
	return b.dispatchedCount.Load()
}
