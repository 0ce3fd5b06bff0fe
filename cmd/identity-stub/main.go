// identity-stub is a development-only stand-in for the identity service. It
// mints real HS256 tokens with the profile claims the session library
// expects, rotates refresh tokens, and honors revocation, so the full
// lifecycle can be exercised locally without a real identity provider.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type stubUser struct {
	ID        string
	Email     string
	Password  string
	Username  string
	FirstName string
	LastName  string
}

type stubServer struct {
	mu            sync.Mutex
	secret        []byte
	user          stubUser
	accessTTL     time.Duration
	refreshTTL    time.Duration
	refreshTokens map[string]time.Time
}

type tokenResponse struct {
	TokenType        string `json:"tokenType"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

func main() {
	addr := getEnv("STUB_ADDR", "localhost:8089")
	server := &stubServer{
		secret: []byte(getEnv("STUB_SECRET", "stub-secret")),
		user: stubUser{
			ID:        uuid.New().String(),
			Email:     getEnv("STUB_EMAIL", "demo@example.com"),
			Password:  getEnv("STUB_PASSWORD", "demo-password"),
			Username:  getEnv("STUB_USERNAME", "demo"),
			FirstName: "Demo",
			LastName:  "User",
		},
		accessTTL:     getDuration("STUB_ACCESS_TTL", 5*time.Minute),
		refreshTTL:    getDuration("STUB_REFRESH_TTL", 24*time.Hour),
		refreshTokens: make(map[string]time.Time),
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/auth/login", server.login).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/refresh", server.refresh).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/logout", server.logout).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)

	log.Printf("identity-stub listening on %s (user %s)", addr, server.user.Email)
	log.Fatal(http.ListenAndServe(addr, router))
}

func (s *stubServer) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		CaptchaToken string `json:"captchaToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != s.user.Email || req.Password != s.user.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.writeTokens(w)
}

func (s *stubServer) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	expiresAt, ok := s.refreshTokens[req.RefreshToken]
	if ok {
		// rotation: the presented token is spent either way
		delete(s.refreshTokens, req.RefreshToken)
	}
	s.mu.Unlock()

	if !ok || time.Now().After(expiresAt) {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.writeTokens(w)
}

func (s *stubServer) logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	delete(s.refreshTokens, req.RefreshToken)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *stubServer) writeTokens(w http.ResponseWriter) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                s.user.ID,
		"preferred_username": s.user.Username,
		"email":              s.user.Email,
		"given_name":         s.user.FirstName,
		"family_name":        s.user.LastName,
		"iat":                now.Unix(),
		"exp":                now.Add(s.accessTTL).Unix(),
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign access token")
		return
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate refresh token")
		return
	}

	s.mu.Lock()
	s.refreshTokens[refreshToken] = now.Add(s.refreshTTL)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{
		TokenType:        "Bearer",
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
	})
}

func newRefreshToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
