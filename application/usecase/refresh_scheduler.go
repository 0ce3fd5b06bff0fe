package usecase

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/fixora/sessionkit/domain/valueobject"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

// refreshScheduler owns the proactive renewal timer. It holds at most one
// pending timer; every re-arm cancels the previous one first.
type refreshScheduler struct {
	mu       sync.Mutex
	timer    *time.Timer
	paused   bool
	last     *valueobject.TokenPair
	leeway   time.Duration
	jitter   time.Duration
	minDelay time.Duration
	rng      *rand.Rand
	now      func() time.Time
	refresh  func()
	logger   logger.Logger
}

func newRefreshScheduler(leeway, jitter, minDelay time.Duration, now func() time.Time, refresh func(), log logger.Logger) *refreshScheduler {
	return &refreshScheduler{
		leeway:   leeway,
		jitter:   jitter,
		minDelay: minDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      now,
		refresh:  refresh,
		logger:   log,
	}
}

// Schedule arms the renewal timer for pair. While paused it only records the
// pair; Resume decides what happens next.
func (s *refreshScheduler) Schedule(pair *valueobject.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.last = pair
	if s.paused {
		return
	}

	delay := s.delayFor(pair)
	s.timer = time.AfterFunc(delay, s.refresh)
	s.logger.Debug(context.Background(), "Renewal scheduled", map[string]interface{}{
		"delay_ms": delay.Milliseconds(),
	})
}

// delayFor computes max(untilExpiry - leeway + jitter, minDelay), clamping to
// an immediate fire when already inside the leeway window. The jitter
// desynchronizes processes holding the same pair so they do not hit the
// identity service in lockstep.
func (s *refreshScheduler) delayFor(pair *valueobject.TokenPair) time.Duration {
	until := pair.ExpiresAtTime().Sub(s.now())
	if until <= s.leeway {
		return 0
	}

	var jitter time.Duration
	if s.jitter > 0 {
		jitter = time.Duration(s.rng.Int63n(int64(2*s.jitter))) - s.jitter
	}

	delay := until - s.leeway + jitter
	if delay < s.minDelay {
		delay = s.minDelay
	}
	return delay
}

// Pause cancels the pending timer and suppresses future arming until Resume.
func (s *refreshScheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.paused = true
}

// Resume clears the paused flag and hands back the last recorded pair; the
// caller chooses between an immediate renewal and a normal re-schedule.
func (s *refreshScheduler) Resume() *valueobject.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return nil
	}
	s.paused = false
	return s.last
}

func (s *refreshScheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Stop cancels everything; used on logout and teardown so no stale timer can
// act on a cleared session.
func (s *refreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.last = nil
	s.paused = false
}

func (s *refreshScheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
