package broadcast

import (
	"context"
	"sync"

	"github.com/fixora/sessionkit/application/port/outbound"
)

// MemoryHub is an in-process broadcast medium. It backs single-instance
// deployments, where there is no peer to notify, and tests, where multiple
// ports on one hub stand in for multiple processes.
type MemoryHub struct {
	mu    sync.Mutex
	ports []*MemoryBroadcast
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{}
}

// NewPort attaches a new endpoint to the hub.
func (h *MemoryHub) NewPort() *MemoryBroadcast {
	h.mu.Lock()
	defer h.mu.Unlock()
	port := &MemoryBroadcast{hub: h}
	h.ports = append(h.ports, port)
	return port
}

func (h *MemoryHub) publish(env outbound.Envelope) {
	h.mu.Lock()
	ports := make([]*MemoryBroadcast, len(h.ports))
	copy(ports, h.ports)
	h.mu.Unlock()

	// every port hears every message, the sender included; echo suppression
	// by origin ID is the receiver's job, same as with a real channel
	for _, p := range ports {
		p.deliver(env)
	}
}

type MemoryBroadcast struct {
	hub     *MemoryHub
	mu      sync.Mutex
	handler func(outbound.Envelope)
	closed  bool
}

func (b *MemoryBroadcast) Publish(_ context.Context, env outbound.Envelope) error {
	b.hub.publish(env)
	return nil
}

func (b *MemoryBroadcast) Subscribe(handler func(outbound.Envelope)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

func (b *MemoryBroadcast) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handler = nil
	return nil
}

func (b *MemoryBroadcast) deliver(env outbound.Envelope) {
	b.mu.Lock()
	handler := b.handler
	closed := b.closed
	b.mu.Unlock()
	if closed || handler == nil {
		return
	}
	handler(env)
}
