package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fixora/sessionkit/application/port/inbound"
	"github.com/fixora/sessionkit/application/port/outbound"
	domainerror "github.com/fixora/sessionkit/domain/error"
	"github.com/fixora/sessionkit/domain/valueobject"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

// ErrNotUnauthenticated is returned when login is submitted while a session
// is already active or another login is in flight.
var ErrNotUnauthenticated = errors.New("login requires an unauthenticated session")

// errSessionSuperseded signals that a teardown overtook an in-flight renewal;
// the renewed pair is discarded, never committed.
var errSessionSuperseded = errors.New("session superseded during refresh")

// SessionConfig carries the timing knobs of the session lifecycle.
type SessionConfig struct {
	Enabled                  bool
	Leeway                   time.Duration
	Jitter                   time.Duration
	MinDelay                 time.Duration
	InactivityLimit          time.Duration
	WarningWindow            time.Duration
	VisibilityPauseThreshold time.Duration
}

// Callbacks is how the host application observes the session. All callbacks
// are optional and may be invoked from background goroutines.
type Callbacks struct {
	// OnWarning signals the "stay logged in?" prompt.
	OnWarning func()
	// OnLogout reports a completed logout. redirect mirrors the first
	// trigger's navigation preference.
	OnLogout func(reason valueobject.LogoutReason, redirect bool)
}

// SessionManager composes the token store, refresh scheduler, cross-process
// synchronizer, visibility controller and inactivity monitor into one state
// machine per process. It also implements inbound.AuthHooks for the HTTP
// transport.
var (
	_ inbound.SessionManager = (*SessionManager)(nil)
	_ inbound.AuthHooks      = (*SessionManager)(nil)
)

type SessionManager struct {
	mu      sync.Mutex
	state   valueobject.SessionState
	pair    *valueobject.TokenPair
	profile *valueobject.AuthProfile
	ready   bool
	// generation increments on every teardown; a renewal that started under
	// an older generation must not commit its result
	generation uint64

	cfg       SessionConfig
	store     outbound.TokenStore
	identity  outbound.IdentityClient
	decoder   outbound.ProfileDecoder
	logger    logger.Logger
	callbacks Callbacks
	now       func() time.Time

	scheduler  *refreshScheduler
	sync       *crossTabSynchronizer
	inactivity *inactivityMonitor
	visibility *visibilityController

	refreshGroup singleflight.Group
}

func NewSessionManager(
	cfg SessionConfig,
	store outbound.TokenStore,
	port outbound.BroadcastPort,
	identity outbound.IdentityClient,
	decoder outbound.ProfileDecoder,
	log logger.Logger,
	callbacks Callbacks,
) *SessionManager {
	m := &SessionManager{
		state:     valueobject.StateUnauthenticated,
		cfg:       cfg,
		store:     store,
		identity:  identity,
		decoder:   decoder,
		logger:    log,
		callbacks: callbacks,
		now:       time.Now,
	}

	m.scheduler = newRefreshScheduler(cfg.Leeway, cfg.Jitter, cfg.MinDelay, m.clock, func() {
		m.ForceRefresh(context.Background())
	}, log)
	m.sync = newCrossTabSynchronizer(port, log, m.applyRemoteTokens, m.remoteLogout)
	m.inactivity = newInactivityMonitor(cfg.InactivityLimit, cfg.WarningWindow, m.clock, m.warn, m.inactivityLogout)
	m.visibility = newVisibilityController(cfg.VisibilityPauseThreshold, m.pauseRefresh, m.resumeRefresh)

	return m
}

func (m *SessionManager) clock() time.Time {
	return m.now()
}

// Start restores any persisted session. A fresh pair is applied without a
// network call; a pair already inside the leeway window is renewed
// immediately; anything corrupt or refresh-expired is silently discarded.
func (m *SessionManager) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.markReady()
		return nil
	}

	m.sync.Start()

	pair, err := m.store.Load()
	if err != nil {
		logger.LogSessionEvent(ctx, m.logger, "restore_discarded", string(valueobject.StateUnauthenticated), false, map[string]interface{}{
			"error": err.Error(),
		})
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn(ctx, "Failed to clear corrupt session record", map[string]interface{}{
				"error": clearErr.Error(),
			})
		}
		m.markReady()
		return nil
	}
	if pair == nil {
		m.markReady()
		return nil
	}

	if pair.RefreshExpired(m.now()) {
		logger.LogSessionEvent(ctx, m.logger, "restore_refresh_expired", string(valueobject.StateUnauthenticated), false, nil)
		if err := m.store.Clear(); err != nil {
			m.logger.Warn(ctx, "Failed to clear expired session record", map[string]interface{}{
				"error": err.Error(),
			})
		}
		m.markReady()
		return nil
	}

	if err := m.applyPair(ctx, pair, false); err != nil {
		logger.LogSessionEvent(ctx, m.logger, "restore_decode_failed", string(valueobject.StateUnauthenticated), false, map[string]interface{}{
			"error": err.Error(),
		})
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn(ctx, "Failed to clear undecodable session record", map[string]interface{}{
				"error": clearErr.Error(),
			})
		}
		m.markReady()
		return nil
	}

	m.inactivity.Start()
	logger.LogSessionEvent(ctx, m.logger, "session_restored", string(valueobject.StateAuthenticated), true, nil)

	if pair.ExpiresWithin(m.cfg.Leeway, m.now()) {
		go m.ForceRefresh(context.Background())
	}
	return nil
}

func (m *SessionManager) Login(ctx context.Context, creds *valueobject.Credentials) error {
	if creds == nil {
		return domainerror.New(domainerror.ErrCodeMissingPassword, "credentials are required")
	}

	m.mu.Lock()
	if m.state != valueobject.StateUnauthenticated {
		m.mu.Unlock()
		return ErrNotUnauthenticated
	}
	m.state = valueobject.StateAuthenticating
	m.mu.Unlock()

	logger.LogSessionEvent(ctx, m.logger, "login_attempt", string(valueobject.StateAuthenticating), true, map[string]interface{}{
		"email": creds.Email(),
	})

	resp, err := m.identity.Login(ctx, creds.Email(), creds.Password(), creds.CaptchaToken())
	if err != nil {
		m.abandonLogin()
		logger.LogSessionEvent(ctx, m.logger, "login_failed", string(valueobject.StateUnauthenticated), false, map[string]interface{}{
			"email": creds.Email(),
			"error": err.Error(),
		})
		return err
	}

	pair := pairFromResponse(resp, m.now())
	if err := m.applyPair(ctx, pair, true); err != nil {
		m.abandonLogin()
		logger.LogSessionEvent(ctx, m.logger, "login_decode_failed", string(valueobject.StateUnauthenticated), false, map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	m.inactivity.Start()
	logger.LogSessionEvent(ctx, m.logger, "login_successful", string(valueobject.StateAuthenticated), true, map[string]interface{}{
		"email": creds.Email(),
	})
	return nil
}

// ForceRefresh renews the token pair now. Concurrent callers collapse onto a
// single in-flight renewal and all receive its result.
func (m *SessionManager) ForceRefresh(ctx context.Context) bool {
	result, _, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx), nil
	})
	ok, _ := result.(bool)
	return ok
}

func (m *SessionManager) doRefresh(ctx context.Context) bool {
	m.mu.Lock()
	pair := m.pair
	gen := m.generation
	if pair == nil || !m.state.IsAuthenticated() {
		m.mu.Unlock()
		return false
	}
	if pair.RefreshExpired(m.now()) {
		m.mu.Unlock()
		logger.LogSessionEvent(ctx, m.logger, "refresh_failed", string(valueobject.StateRefreshing), false, map[string]interface{}{
			"error": "refresh token expired",
		})
		m.logout(ctx, valueobject.LogoutRefreshFailed, true, false, true)
		return false
	}
	m.state = valueobject.StateRefreshing
	m.mu.Unlock()

	resp, err := m.identity.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		logger.LogSessionEvent(ctx, m.logger, "refresh_failed", string(valueobject.StateRefreshing), false, map[string]interface{}{
			"error": err.Error(),
		})
		m.logout(ctx, valueobject.LogoutRefreshFailed, true, true, true)
		return false
	}

	// the session may have been torn down while the request was in flight;
	// a logged-out session must stay logged out
	next := pairFromResponse(resp, m.now())
	err = m.commitPair(ctx, next, true, func() bool {
		return m.generation == gen && m.state == valueobject.StateRefreshing
	})
	if errors.Is(err, errSessionSuperseded) {
		logger.LogSessionEvent(ctx, m.logger, "refresh_discarded", string(valueobject.StateUnauthenticated), false, nil)
		return false
	}
	if err != nil {
		logger.LogSessionEvent(ctx, m.logger, "refresh_decode_failed", string(valueobject.StateRefreshing), false, map[string]interface{}{
			"error": err.Error(),
		})
		m.logout(ctx, valueobject.LogoutRefreshFailed, true, true, true)
		return false
	}

	logger.LogSessionEvent(ctx, m.logger, "refresh_successful", string(valueobject.StateAuthenticated), true, nil)
	return true
}

// Logout tears the session down everywhere: broadcast to peers, best-effort
// revocation at the identity service, local state cleared.
func (m *SessionManager) Logout(ctx context.Context, redirect bool) {
	m.logout(ctx, valueobject.LogoutManual, redirect, true, true)
}

func (m *SessionManager) StayLoggedIn(ctx context.Context) error {
	m.RecordActivity()
	// reconfirm with the server, not merely the local clock
	if !m.ForceRefresh(ctx) {
		return domainerror.New(domainerror.ErrCodeRefreshRejected, "session could not be reconfirmed")
	}
	return nil
}

func (m *SessionManager) RecordActivity() {
	m.inactivity.RecordActivity()
}

func (m *SessionManager) SetVisible(visible bool) {
	m.mu.Lock()
	authenticated := m.state.IsAuthenticated()
	m.mu.Unlock()

	m.visibility.SetVisible(visible, authenticated)
	if visible {
		m.RecordActivity()
	}
}

func (m *SessionManager) Snapshot() inbound.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return inbound.SessionSnapshot{
		Enabled:       m.cfg.Enabled,
		Loading:       m.state == valueobject.StateAuthenticating,
		Ready:         m.ready,
		Authenticated: m.state.IsAuthenticated(),
		State:         m.state,
		Profile:       m.profile,
		Token:         m.pair,
	}
}

// Close stops background work without logging the user out; the persisted
// session survives a restart.
func (m *SessionManager) Close() error {
	m.scheduler.Stop()
	m.inactivity.Stop()
	m.visibility.Reset()
	return m.sync.Close()
}

// AuthHooks implementation, consumed by the HTTP transport.

func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair == nil || !m.state.IsAuthenticated() {
		return ""
	}
	return m.pair.Authorization()
}

func (m *SessionManager) TryRefresh(ctx context.Context) bool {
	return m.ForceRefresh(ctx)
}

func (m *SessionManager) OnUnauthorized() {
	m.logout(context.Background(), valueobject.LogoutUnauthorized, true, true, true)
}

// internal

// applyPair replaces the held token pair wholesale: decode profile, persist,
// re-schedule, optionally broadcast. Store failures degrade to an in-memory
// session rather than failing the apply.
func (m *SessionManager) applyPair(ctx context.Context, pair *valueobject.TokenPair, broadcast bool) error {
	return m.commitPair(ctx, pair, broadcast, nil)
}

// commitPair is applyPair with an optional guard evaluated under the state
// lock just before the pair is committed. Persisting and re-arming the timer
// happen inside the same critical section, so a concurrent teardown is
// ordered strictly before or after the whole commit.
func (m *SessionManager) commitPair(ctx context.Context, pair *valueobject.TokenPair, broadcast bool, guard func() bool) error {
	profile, err := m.decoder.Decode(pair.AccessToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if guard != nil && !guard() {
		m.mu.Unlock()
		return errSessionSuperseded
	}

	if err := m.store.Save(pair); err != nil {
		m.logger.Warn(ctx, "Failed to persist session record", map[string]interface{}{
			"error": err.Error(),
		})
	}

	m.pair = pair
	m.profile = profile
	m.state = valueobject.StateAuthenticated
	m.ready = true
	m.scheduler.Schedule(pair)
	m.mu.Unlock()

	if broadcast {
		m.sync.BroadcastTokens(ctx, pair)
	}
	return nil
}

func (m *SessionManager) logout(ctx context.Context, reason valueobject.LogoutReason, redirect, revoke, broadcast bool) {
	m.mu.Lock()
	if m.state == valueobject.StateLoggingOut || m.state == valueobject.StateUnauthenticated {
		// another trigger is already tearing the session down; only the
		// first caller's redirect preference is honored
		m.mu.Unlock()
		return
	}
	m.state = valueobject.StateLoggingOut
	m.generation++
	pair := m.pair
	m.mu.Unlock()

	m.scheduler.Stop()
	m.inactivity.Stop()
	m.visibility.Reset()

	if broadcast {
		m.sync.BroadcastLogout(ctx)
	}

	if revoke && pair != nil {
		if err := m.identity.Logout(ctx, pair.RefreshToken); err != nil {
			m.logger.Warn(ctx, "Best-effort token revocation failed", map[string]interface{}{
				"reason": string(reason),
				"error":  err.Error(),
			})
		}
	}

	if err := m.store.Clear(); err != nil {
		m.logger.Warn(ctx, "Failed to clear session record", map[string]interface{}{
			"error": err.Error(),
		})
	}

	m.mu.Lock()
	m.pair = nil
	m.profile = nil
	m.state = valueobject.StateUnauthenticated
	m.ready = true
	m.mu.Unlock()

	logger.LogSessionEvent(ctx, m.logger, "logout", string(valueobject.StateUnauthenticated), true, map[string]interface{}{
		"reason":   string(reason),
		"redirect": redirect,
	})

	if m.callbacks.OnLogout != nil {
		m.callbacks.OnLogout(reason, redirect)
	}
}

// abandonLogin rolls a failed login back to unauthenticated. If the state
// moved on while the request was outstanding (a peer's token broadcast may
// have established a session), that session is left untouched.
func (m *SessionManager) abandonLogin() {
	m.mu.Lock()
	if m.state == valueobject.StateAuthenticating {
		m.state = valueobject.StateUnauthenticated
	}
	m.ready = true
	m.mu.Unlock()
}

func (m *SessionManager) applyRemoteTokens(pair *valueobject.TokenPair) {
	ctx := context.Background()
	m.mu.Lock()
	adopting := !m.state.IsAuthenticated()
	m.mu.Unlock()

	if err := m.applyPair(ctx, pair, false); err != nil {
		m.logger.Warn(ctx, "Failed to apply broadcast token pair", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	// a peer's renewal is not local user activity; only adopting a session
	// this process did not have starts the inactivity clock
	if adopting {
		m.inactivity.Start()
	}
}

func (m *SessionManager) remoteLogout() {
	// local-only: no revocation call, no re-broadcast, no navigation
	m.logout(context.Background(), valueobject.LogoutBroadcast, false, false, false)
}

func (m *SessionManager) warn() {
	m.mu.Lock()
	authenticated := m.state.IsAuthenticated()
	m.mu.Unlock()
	if !authenticated {
		return
	}

	logger.LogSessionEvent(context.Background(), m.logger, "inactivity_warning", string(valueobject.StateAuthenticated), true, nil)
	if m.callbacks.OnWarning != nil {
		m.callbacks.OnWarning()
	}
}

func (m *SessionManager) inactivityLogout() {
	m.logout(context.Background(), valueobject.LogoutInactivity, true, true, true)
}

func (m *SessionManager) pauseRefresh() {
	m.scheduler.Pause()
	logger.LogSessionEvent(context.Background(), m.logger, "refresh_paused", string(valueobject.StateAuthenticated), true, nil)
}

func (m *SessionManager) resumeRefresh() {
	last := m.scheduler.Resume()
	if last == nil {
		return
	}

	logger.LogSessionEvent(context.Background(), m.logger, "refresh_resumed", string(valueobject.StateAuthenticated), true, nil)

	if last.ExpiresWithin(m.cfg.Leeway, m.now()) {
		go m.ForceRefresh(context.Background())
		return
	}
	m.scheduler.Schedule(last)
}

func (m *SessionManager) markReady() {
	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
}

func pairFromResponse(resp *outbound.TokenResponse, now time.Time) *valueobject.TokenPair {
	return valueobject.NewTokenPair(resp.TokenType, resp.AccessToken, resp.RefreshToken, resp.ExpiresIn, resp.RefreshExpiresIn, now)
}
