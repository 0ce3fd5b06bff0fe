package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fixora/sessionkit/application/port/outbound"
	"github.com/fixora/sessionkit/domain/valueobject"
	"github.com/fixora/sessionkit/infrastructure/broadcast"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
	"github.com/fixora/sessionkit/infrastructure/service/profile"
)

// fakeIdentity is a scriptable identity service with call counters.
type fakeIdentity struct {
	mu           sync.Mutex
	loginCalls   int
	refreshCalls int
	logoutCalls  int
	loginErr     error
	refreshErr   error
	logoutErr    error
	// accessTTLs is consumed one entry per issued response; the last entry
	// repeats once the queue drains.
	accessTTLs []int64
	refreshTTL int64
	issued     int
	// block, when non-nil, stalls Refresh until the channel closes;
	// loginBlock does the same for Login.
	block      chan struct{}
	loginBlock chan struct{}
}

func newFakeIdentity(accessTTLs ...int64) *fakeIdentity {
	if len(accessTTLs) == 0 {
		accessTTLs = []int64{600}
	}
	return &fakeIdentity{accessTTLs: accessTTLs, refreshTTL: 86400}
}

func (f *fakeIdentity) Login(ctx context.Context, email, password, captchaToken string) (*outbound.TokenResponse, error) {
	f.mu.Lock()
	f.loginCalls++
	err := f.loginErr
	block := f.loginBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return f.tokens(), nil
}

func (f *fakeIdentity) Refresh(ctx context.Context, refreshToken string) (*outbound.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	err := f.refreshErr
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return f.tokens(), nil
}

func (f *fakeIdentity) Logout(ctx context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeIdentity) tokens() *outbound.TokenResponse {
	f.mu.Lock()
	idx := f.issued
	if idx >= len(f.accessTTLs) {
		idx = len(f.accessTTLs) - 1
	}
	ttl := f.accessTTLs[idx]
	f.issued++
	n := f.issued
	f.mu.Unlock()

	return &outbound.TokenResponse{
		TokenType:        "Bearer",
		AccessToken:      mintAccessToken("demo", "demo@example.com"),
		RefreshToken:     fmt.Sprintf("refresh-%d", n),
		ExpiresIn:        ttl,
		RefreshExpiresIn: f.refreshTTL,
	}
}

func (f *fakeIdentity) counts() (login, refresh, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.logoutCalls
}

// memoryStore is an in-memory TokenStore with an injectable load failure.
type memoryStore struct {
	mu      sync.Mutex
	pair    *valueobject.TokenPair
	loadErr error
}

func (s *memoryStore) Load() (*valueobject.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.pair, nil
}

func (s *memoryStore) Save(pair *valueobject.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *memoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}

// spyPort counts the envelopes a manager publishes.
type spyPort struct {
	outbound.BroadcastPort
	mu        sync.Mutex
	published []outbound.Envelope
}

func (p *spyPort) Publish(ctx context.Context, env outbound.Envelope) error {
	p.mu.Lock()
	p.published = append(p.published, env)
	p.mu.Unlock()
	return p.BroadcastPort.Publish(ctx, env)
}

func (p *spyPort) publishedKinds() []outbound.EnvelopeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]outbound.EnvelopeKind, 0, len(p.published))
	for _, env := range p.published {
		kinds = append(kinds, env.Kind)
	}
	return kinds
}

func mintAccessToken(username, email string) string {
	claims := jwt.MapClaims{
		"jti":                uuid.New().String(),
		"sub":                "user-1",
		"preferred_username": username,
		"email":              email,
		"given_name":         "Demo",
		"family_name":        "User",
		"exp":                time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

func storedPair(expiresIn, refreshExpiresIn time.Duration) *valueobject.TokenPair {
	now := time.Now()
	pair := &valueobject.TokenPair{
		TokenType:    valueobject.DefaultTokenType,
		AccessToken:  mintAccessToken("demo", "demo@example.com"),
		RefreshToken: "stored-refresh",
		ExpiresAt:    now.Add(expiresIn).UnixMilli(),
	}
	if refreshExpiresIn != 0 {
		pair.RefreshExpiresAt = now.Add(refreshExpiresIn).UnixMilli()
	}
	return pair
}

func testConfig() SessionConfig {
	return SessionConfig{
		Enabled:                  true,
		Leeway:                   time.Minute,
		Jitter:                   0,
		MinDelay:                 time.Millisecond,
		InactivityLimit:          30 * time.Minute,
		WarningWindow:            time.Minute,
		VisibilityPauseThreshold: 10 * time.Minute,
	}
}

func newTestManager(t *testing.T, cfg SessionConfig, store outbound.TokenStore, port outbound.BroadcastPort, id outbound.IdentityClient, cb Callbacks) *SessionManager {
	t.Helper()
	if store == nil {
		store = &memoryStore{}
	}
	if port == nil {
		port = broadcast.NewMemoryHub().NewPort()
	}
	m := NewSessionManager(cfg, store, port, id, profile.NewDecoder(), logger.NewNopLogger(), cb)
	t.Cleanup(func() { m.Close() })
	return m
}

func foreignPair(refreshToken string) *valueobject.TokenPair {
	return valueobject.NewTokenPair(valueobject.DefaultTokenType, mintAccessToken("peer", "peer@example.com"), refreshToken, 600, 86400, time.Now())
}

func inactivityState(m *SessionManager) (running bool, lastActivity time.Time) {
	m.inactivity.mu.Lock()
	defer m.inactivity.mu.Unlock()
	return m.inactivity.running, m.inactivity.lastActivity
}

func mustLogin(t *testing.T, m *SessionManager) {
	t.Helper()
	creds, err := valueobject.NewCredentials("demo@example.com", "demo-password", "")
	if err != nil {
		t.Fatalf("failed to build credentials: %v", err)
	}
	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}
