package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/sessionkit/application/port/outbound"
	"github.com/fixora/sessionkit/domain/valueobject"
	"github.com/fixora/sessionkit/infrastructure/broadcast"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

type syncRecorder struct {
	mu      sync.Mutex
	tokens  []*valueobject.TokenPair
	logouts int
}

func (r *syncRecorder) applyTokens(pair *valueobject.TokenPair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, pair)
}

func (r *syncRecorder) applyLogout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logouts++
}

func (r *syncRecorder) snapshot() (tokens int, logouts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens), r.logouts
}

func newTestSynchronizer(port outbound.BroadcastPort, rec *syncRecorder) *crossTabSynchronizer {
	s := newCrossTabSynchronizer(port, logger.NewNopLogger(), rec.applyTokens, rec.applyLogout)
	s.Start()
	return s
}

func TestSynchronizerDeliversTokensBetweenPeers(t *testing.T) {
	hub := broadcast.NewMemoryHub()
	recA, recB := &syncRecorder{}, &syncRecorder{}
	a := newTestSynchronizer(hub.NewPort(), recA)
	b := newTestSynchronizer(hub.NewPort(), recB)
	defer a.Close()
	defer b.Close()

	pair := storedPair(10*time.Minute, 24*time.Hour)
	a.BroadcastTokens(context.Background(), pair)

	tokensB, logoutsB := recB.snapshot()
	assert.Equal(t, 1, tokensB)
	assert.Zero(t, logoutsB)

	// the sender never applies its own echo
	tokensA, _ := recA.snapshot()
	assert.Zero(t, tokensA)
}

func TestSynchronizerDeliversLogout(t *testing.T) {
	hub := broadcast.NewMemoryHub()
	recA, recB := &syncRecorder{}, &syncRecorder{}
	a := newTestSynchronizer(hub.NewPort(), recA)
	b := newTestSynchronizer(hub.NewPort(), recB)
	defer a.Close()
	defer b.Close()

	a.BroadcastLogout(context.Background())

	_, logoutsB := recB.snapshot()
	assert.Equal(t, 1, logoutsB)
	_, logoutsA := recA.snapshot()
	assert.Zero(t, logoutsA)
}

func TestSynchronizerIgnoresIncompletePair(t *testing.T) {
	hub := broadcast.NewMemoryHub()
	rec := &syncRecorder{}
	s := newTestSynchronizer(hub.NewPort(), rec)
	defer s.Close()
	sender := hub.NewPort()

	require.NoError(t, sender.Publish(context.Background(), outbound.Envelope{
		Kind:      outbound.KindTokens,
		OriginID:  "someone-else",
		TokenPair: &valueobject.TokenPair{AccessToken: "only-access"},
	}))
	require.NoError(t, sender.Publish(context.Background(), outbound.Envelope{
		Kind:     outbound.KindTokens,
		OriginID: "someone-else",
	}))

	tokens, _ := rec.snapshot()
	assert.Zero(t, tokens)
}

func TestSynchronizerIgnoresUnknownKind(t *testing.T) {
	hub := broadcast.NewMemoryHub()
	rec := &syncRecorder{}
	s := newTestSynchronizer(hub.NewPort(), rec)
	defer s.Close()
	sender := hub.NewPort()

	require.NoError(t, sender.Publish(context.Background(), outbound.Envelope{
		Kind:     outbound.EnvelopeKind("gossip"),
		OriginID: "someone-else",
	}))

	tokens, logouts := rec.snapshot()
	assert.Zero(t, tokens)
	assert.Zero(t, logouts)
}

func TestSynchronizerOriginIDsAreUnique(t *testing.T) {
	hub := broadcast.NewMemoryHub()
	rec := &syncRecorder{}
	a := newTestSynchronizer(hub.NewPort(), rec)
	b := newTestSynchronizer(hub.NewPort(), rec)
	defer a.Close()
	defer b.Close()

	assert.NotEmpty(t, a.originID)
	assert.NotEqual(t, a.originID, b.originID)
}
