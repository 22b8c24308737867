package rpc

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/nextobject/internal/dispatch"
	"github.com/banshee-data/nextobject/internal/selector"
)

// Hub fans published targets out to stream subscribers. Slow subscribers
// lose targets rather than stalling the dispatcher.
type Hub struct {
	buffer int

	mu      sync.RWMutex
	clients map[string]*subscriber
	closed  bool

	nextID    atomic.Uint64
	published atomic.Uint64
	dropped   atomic.Uint64
}

type subscriber struct {
	id     string
	filter func(dispatch.Target) bool
	ch     chan dispatch.Target
	done   chan struct{}
}

// NewHub creates a hub giving each subscriber a queue of buffer targets.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{buffer: buffer, clients: make(map[string]*subscriber)}
}

// DirectionFilter returns a filter keeping only targets in the requested
// directions. With neither flag set every target passes.
func DirectionFilter(forwardOnly, reverseOnly bool) func(dispatch.Target) bool {
	switch {
	case forwardOnly && !reverseOnly:
		return func(t dispatch.Target) bool { return t.Direction == selector.Forward }
	case reverseOnly && !forwardOnly:
		return func(t dispatch.Target) bool { return t.Direction == selector.Reverse }
	default:
		return nil
	}
}

// Subscribe registers a subscriber. The done channel closes when the hub
// shuts down; target channels are never closed.
func (h *Hub) Subscribe(filter func(dispatch.Target) bool) (id string, targets <-chan dispatch.Target, done <-chan struct{}) {
	sub := &subscriber{
		id:     fmt.Sprintf("sub-%d", h.nextID.Add(1)),
		filter: filter,
		ch:     make(chan dispatch.Target, h.buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		close(sub.done)
	} else {
		h.clients[sub.id] = sub
	}
	n := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gRPC] Subscriber connected: %s (total: %d)", sub.id, n)
	return sub.id, sub.ch, sub.done
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		log.Printf("[gRPC] Subscriber disconnected: %s (remaining: %d)", sub.id, n)
	}
}

// Publish implements dispatch.Publisher.
func (h *Hub) Publish(t dispatch.Target) {
	h.published.Add(1)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.clients {
		if sub.filter != nil && !sub.filter(t) {
			continue
		}
		select {
		case sub.ch <- t:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns deliveries lost to full subscriber queues.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close releases every subscriber. Later subscriptions are closed at once.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.clients {
		close(sub.done)
		delete(h.clients, id)
	}
}
