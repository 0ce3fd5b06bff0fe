package usecase

import (
	"sync"
	"time"
)

// visibilityController suspends background renewal when the host has been in
// the background longer than the threshold, so a parked process burns no
// network. Short background stints never disturb the schedule.
type visibilityController struct {
	mu        sync.Mutex
	threshold time.Duration
	hideTimer *time.Timer
	visible   bool
	paused    bool
	onPause   func()
	onResume  func()
}

func newVisibilityController(threshold time.Duration, onPause, onResume func()) *visibilityController {
	return &visibilityController{
		threshold: threshold,
		visible:   true,
		onPause:   onPause,
		onResume:  onResume,
	}
}

func (vc *visibilityController) SetVisible(visible, authenticated bool) {
	vc.mu.Lock()
	if visible == vc.visible {
		vc.mu.Unlock()
		return
	}
	vc.visible = visible

	if !visible {
		if authenticated {
			vc.hideTimer = time.AfterFunc(vc.threshold, vc.hidden)
		}
		vc.mu.Unlock()
		return
	}

	if vc.hideTimer != nil {
		vc.hideTimer.Stop()
		vc.hideTimer = nil
	}
	wasPaused := vc.paused
	vc.paused = false
	vc.mu.Unlock()

	if wasPaused {
		vc.onResume()
	}
}

func (vc *visibilityController) hidden() {
	vc.mu.Lock()
	if vc.visible {
		// came back before anyone noticed the timer firing
		vc.mu.Unlock()
		return
	}
	vc.paused = true
	vc.hideTimer = nil
	vc.mu.Unlock()

	vc.onPause()
}

// Reset cancels the countdown and clears the paused flag without resuming;
// used on logout and teardown.
func (vc *visibilityController) Reset() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.hideTimer != nil {
		vc.hideTimer.Stop()
		vc.hideTimer = nil
	}
	vc.paused = false
}
