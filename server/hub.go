package server

import "sync"

// hub fans one value stream out to any number of subscribers. Slow
// subscribers drop messages instead of blocking the publisher.
type subscription[T any] struct {
	ch chan T
}

type hub[T any] struct {
	mu     sync.RWMutex
	subs   map[*subscription[T]]struct{}
	closed bool
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: make(map[*subscription[T]]struct{})}
}

func (h *hub[T]) Subscribe(buffer int) *subscription[T] {
	sub := &subscription[T]{ch: make(chan T, buffer)}
	h.mu.Lock()
	if h.closed {
		close(sub.ch)
	} else {
		h.subs[sub] = struct{}{}
	}
	h.mu.Unlock()
	return sub
}

func (h *hub[T]) Unsubscribe(sub *subscription[T]) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

func (h *hub[T]) Broadcast(value T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- value:
		default:
		}
	}
}

// Close drops every subscriber; further Broadcast calls are no-ops.
func (h *hub[T]) Close() {
	h.mu.Lock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.closed = true
	h.mu.Unlock()
}
