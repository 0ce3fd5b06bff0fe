package valueobject

// SessionState is the per-process session state. Exactly one state holds at a
// time; independent processes each run their own copy of the state machine and
// reconcile only through broadcast events.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
	StateRefreshing      SessionState = "refreshing"
	StateLoggingOut      SessionState = "logging_out"
)

// IsAuthenticated reports whether a valid token pair is held. A session that
// is mid-refresh still presents as authenticated to callers.
func (s SessionState) IsAuthenticated() bool {
	return s == StateAuthenticated || s == StateRefreshing
}

// LogoutReason names what triggered a logout.
type LogoutReason string

const (
	LogoutManual        LogoutReason = "manual"
	LogoutBroadcast     LogoutReason = "broadcast"
	LogoutInactivity    LogoutReason = "inactivity-timeout"
	LogoutRefreshFailed LogoutReason = "refresh-failed"
	LogoutUnauthorized  LogoutReason = "unauthorized"
)
