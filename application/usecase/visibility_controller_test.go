package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visibilityProbe struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (p *visibilityProbe) pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *visibilityProbe) resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
}

func (p *visibilityProbe) counts() (pauses, resumes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses, p.resumes
}

func TestControllerPausesAfterThreshold(t *testing.T) {
	probe := &visibilityProbe{}
	vc := newVisibilityController(50*time.Millisecond, probe.pause, probe.resume)
	defer vc.Reset()

	vc.SetVisible(false, true)

	require.Eventually(t, func() bool {
		pauses, _ := probe.counts()
		return pauses == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestControllerBriefHideNeverPauses(t *testing.T) {
	probe := &visibilityProbe{}
	vc := newVisibilityController(200*time.Millisecond, probe.pause, probe.resume)
	defer vc.Reset()

	vc.SetVisible(false, true)
	time.Sleep(50 * time.Millisecond)
	vc.SetVisible(true, true)
	time.Sleep(250 * time.Millisecond)

	pauses, resumes := probe.counts()
	assert.Zero(t, pauses)
	assert.Zero(t, resumes, "nothing was paused, nothing to resume")
}

func TestControllerResumesAfterPause(t *testing.T) {
	probe := &visibilityProbe{}
	vc := newVisibilityController(30*time.Millisecond, probe.pause, probe.resume)
	defer vc.Reset()

	vc.SetVisible(false, true)
	require.Eventually(t, func() bool {
		pauses, _ := probe.counts()
		return pauses == 1
	}, 2*time.Second, 5*time.Millisecond)

	vc.SetVisible(true, true)
	_, resumes := probe.counts()
	assert.Equal(t, 1, resumes)
}

func TestControllerIgnoresUnauthenticatedHide(t *testing.T) {
	probe := &visibilityProbe{}
	vc := newVisibilityController(30*time.Millisecond, probe.pause, probe.resume)
	defer vc.Reset()

	vc.SetVisible(false, false)
	time.Sleep(100 * time.Millisecond)

	pauses, _ := probe.counts()
	assert.Zero(t, pauses)
}

func TestControllerDedupesRepeatedStates(t *testing.T) {
	probe := &visibilityProbe{}
	vc := newVisibilityController(30*time.Millisecond, probe.pause, probe.resume)
	defer vc.Reset()

	vc.SetVisible(true, true) // already visible
	vc.SetVisible(false, true)
	vc.SetVisible(false, true) // repeated hide must not rearm

	require.Eventually(t, func() bool {
		pauses, _ := probe.counts()
		return pauses == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	pauses, _ := probe.counts()
	assert.Equal(t, 1, pauses)
}

func TestControllerResetClearsPausedWithoutResuming(t *testing.T) {
	probe := &visibilityProbe{}
	vc := newVisibilityController(30*time.Millisecond, probe.pause, probe.resume)

	vc.SetVisible(false, true)
	require.Eventually(t, func() bool {
		pauses, _ := probe.counts()
		return pauses == 1
	}, 2*time.Second, 5*time.Millisecond)

	vc.Reset()
	vc.SetVisible(true, true)

	_, resumes := probe.counts()
	assert.Zero(t, resumes)
}
