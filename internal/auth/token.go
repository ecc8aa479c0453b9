package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore holds the operator's bearer token. It is shared between
// the API client (reads on every request, clears on 401/403) and the
// console handlers (report login state).
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore seeds the store, typically from config at startup.
func NewTokenStore(token string) *TokenStore {
	return &TokenStore{token: token}
}

// Token returns the current bearer token, empty when logged out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the stored token after a fresh login.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear discards the token. Wired as the client's unauthorized hook.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Expired reports whether the stored token is a JWT whose exp claim has
// passed. The signature is deliberately not checked: the backend owns
// verification, we only want to skip round-trips that are guaranteed to
// come back 401. Opaque (non-JWT) tokens are never reported expired.
func (s *TokenStore) Expired(now time.Time) bool {
	tok := s.Token()
	if tok == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(now)
}
