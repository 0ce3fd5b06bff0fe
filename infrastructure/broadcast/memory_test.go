package broadcast

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/sessionkit/application/port/outbound"
)

type envelopeSink struct {
	mu       sync.Mutex
	received []outbound.Envelope
}

func (s *envelopeSink) handle(env outbound.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, env)
}

func (s *envelopeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestMemoryHubDeliversToAllPortsIncludingSender(t *testing.T) {
	hub := NewMemoryHub()
	a, b := hub.NewPort(), hub.NewPort()

	sinkA, sinkB := &envelopeSink{}, &envelopeSink{}
	a.Subscribe(sinkA.handle)
	b.Subscribe(sinkB.handle)

	env := outbound.Envelope{Kind: outbound.KindLogout, OriginID: "origin-a"}
	require.NoError(t, a.Publish(context.Background(), env))

	// the medium echoes to everyone; origin filtering is the receiver's job
	assert.Equal(t, 1, sinkA.count())
	assert.Equal(t, 1, sinkB.count())

	sinkB.mu.Lock()
	assert.Equal(t, env, sinkB.received[0])
	sinkB.mu.Unlock()
}

func TestMemoryHubClosedPortStopsReceiving(t *testing.T) {
	hub := NewMemoryHub()
	a, b := hub.NewPort(), hub.NewPort()

	sink := &envelopeSink{}
	b.Subscribe(sink.handle)
	require.NoError(t, b.Close())

	require.NoError(t, a.Publish(context.Background(), outbound.Envelope{Kind: outbound.KindLogout, OriginID: "origin-a"}))
	assert.Zero(t, sink.count())
}

func TestMemoryHubUnsubscribedPortIgnoresMessages(t *testing.T) {
	hub := NewMemoryHub()
	a := hub.NewPort()
	hub.NewPort() // attached but never subscribed

	require.NoError(t, a.Publish(context.Background(), outbound.Envelope{Kind: outbound.KindTokens, OriginID: "origin-a"}))
}
