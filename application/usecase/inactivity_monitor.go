package usecase

import (
	"sync"
	"time"
)

// inactivityMonitor tracks the last observed user interaction and schedules a
// warning followed by a forced logout. It only runs while a session is
// active; the manager gates Start/Stop on authentication state.
type inactivityMonitor struct {
	mu            sync.Mutex
	limit         time.Duration
	warningWindow time.Duration
	warnTimer     *time.Timer
	logoutTimer   *time.Timer
	lastActivity  time.Time
	running       bool
	now           func() time.Time
	onWarning     func()
	onTimeout     func()
}

func newInactivityMonitor(limit, warningWindow time.Duration, now func() time.Time, onWarning, onTimeout func()) *inactivityMonitor {
	return &inactivityMonitor{
		limit:         limit,
		warningWindow: warningWindow,
		now:           now,
		onWarning:     onWarning,
		onTimeout:     onTimeout,
	}
}

// Start begins monitoring, counting from now. Idempotent: starting a running
// monitor just records fresh activity.
func (im *inactivityMonitor) Start() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.running = true
	im.lastActivity = im.now()
	im.rearmLocked()
}

func (im *inactivityMonitor) RecordActivity() {
	im.mu.Lock()
	defer im.mu.Unlock()
	if !im.running {
		return
	}
	im.lastActivity = im.now()
	im.rearmLocked()
}

func (im *inactivityMonitor) Stop() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.running = false
	im.cancelLocked()
}

func (im *inactivityMonitor) rearmLocked() {
	im.cancelLocked()
	if im.limit <= 0 {
		return
	}

	remaining := im.limit - im.now().Sub(im.lastActivity)
	if remaining <= 0 {
		// already past the limit, no grace period
		go im.onTimeout()
		return
	}

	warnIn := remaining - im.warningWindow
	if warnIn < 0 {
		warnIn = 0
	}
	im.warnTimer = time.AfterFunc(warnIn, im.onWarning)
	im.logoutTimer = time.AfterFunc(remaining, im.onTimeout)
}

func (im *inactivityMonitor) cancelLocked() {
	if im.warnTimer != nil {
		im.warnTimer.Stop()
		im.warnTimer = nil
	}
	if im.logoutTimer != nil {
		im.logoutTimer.Stop()
		im.logoutTimer = nil
	}
}
