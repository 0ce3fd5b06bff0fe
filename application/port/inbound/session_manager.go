package inbound

import (
	"context"

	"github.com/fixora/sessionkit/domain/valueobject"
)

// SessionSnapshot is the read model exposed to the host application.
type SessionSnapshot struct {
	Enabled       bool
	Loading       bool
	Ready         bool
	Authenticated bool
	State         valueobject.SessionState
	Profile       *valueobject.AuthProfile
	Token         *valueobject.TokenPair
}

// SessionManager owns the session lifecycle: restore, login, proactive
// refresh, cross-process reconciliation, inactivity logout, and teardown.
type SessionManager interface {
	// Start restores any persisted session and begins background work.
	Start(ctx context.Context) error
	Login(ctx context.Context, creds *valueobject.Credentials) error
	// Logout is idempotent; concurrent triggers collapse into one operation
	// and only the first caller's redirect preference is honored.
	Logout(ctx context.Context, redirect bool)
	// ForceRefresh renews the token pair now. Concurrent callers share a
	// single in-flight renewal and its result.
	ForceRefresh(ctx context.Context) bool
	// StayLoggedIn acknowledges the inactivity warning: records activity and
	// reconfirms the session with the server via an immediate refresh.
	StayLoggedIn(ctx context.Context) error
	// RecordActivity marks user interaction, re-arming the inactivity timers.
	RecordActivity()
	// SetVisible reports foreground/background transitions of the host.
	SetVisible(visible bool)
	Snapshot() SessionSnapshot
	Close() error
}

// AuthHooks is the contract the HTTP layer consumes. It is injected once at
// construction rather than held in mutable module state, so independent
// instances can coexist in tests.
type AuthHooks interface {
	// Token returns the presentable credential string, or empty when
	// unauthenticated.
	Token() string
	TryRefresh(ctx context.Context) bool
	// OnUnauthorized is invoked when any request comes back unauthorized.
	OnUnauthorized()
}
