package messaging

import (
	"context"
	"sync"
)

// Published is one message seen by a MemoryHub.
type Published struct {
	Addr    string
	Topic   string
	Payload []byte
}

// MemoryHub is an in-process fabric. Every transport dialed from it shares
// one topic space regardless of address, and every publish is recorded.
// It backs the "memory" messaging backend used for single-process runs.
type MemoryHub struct {
	mu        sync.Mutex
	subs      map[string][]memorySub
	published []Published
	dialed    []string
	failAddr  map[string]error
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		subs:     make(map[string][]memorySub),
		failAddr: make(map[string]error),
	}
}

// FailDial makes dialing addr return err.
func (h *MemoryHub) FailDial(addr string, err error) {
	h.mu.Lock()
	h.failAddr[addr] = err
	h.mu.Unlock()
}

func (h *MemoryHub) Dialer() Dialer {
	return func(_ context.Context, addr string) (Transport, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.failAddr[addr]; err != nil {
			return nil, err
		}
		h.dialed = append(h.dialed, addr)
		return &memoryTransport{hub: h, addr: addr}, nil
	}
}

// Published returns a copy of every message published so far, in order.
func (h *MemoryHub) Published() []Published {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Published, len(h.published))
	copy(out, h.published)
	return out
}

// Dialed returns the addresses dialed so far, in order.
func (h *MemoryHub) Dialed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.dialed))
	copy(out, h.dialed)
	return out
}

type memorySub struct {
	owner   *memoryTransport
	handler MessageHandler
}

type memoryTransport struct {
	hub    *MemoryHub
	addr   string
	mu     sync.Mutex
	closed bool
}

func (t *memoryTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *memoryTransport) Publish(_ context.Context, topic string, payload []byte) error {
	if t.isClosed() {
		return ErrClosed
	}

	data := append([]byte(nil), payload...)
	t.hub.mu.Lock()
	t.hub.published = append(t.hub.published, Published{Addr: t.addr, Topic: topic, Payload: data})
	subs := append([]memorySub(nil), t.hub.subs[topic]...)
	t.hub.mu.Unlock()

	for _, s := range subs {
		if s.owner.isClosed() {
			continue
		}
		s.handler(topic, data)
	}
	return nil
}

func (t *memoryTransport) Subscribe(topic string, handler MessageHandler) error {
	if t.isClosed() {
		return ErrClosed
	}
	t.hub.mu.Lock()
	t.hub.subs[topic] = append(t.hub.subs[topic], memorySub{owner: t, handler: handler})
	t.hub.mu.Unlock()
	return nil
}

func (t *memoryTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}
