package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestTokenStoreLifecycle(t *testing.T) {
	s := NewTokenStore("initial")
	if s.Token() != "initial" {
		t.Fatalf("Token = %q", s.Token())
	}
	s.Set("rotated")
	if s.Token() != "rotated" {
		t.Fatalf("Token after Set = %q", s.Token())
	}
	s.Clear()
	if s.Token() != "" {
		t.Fatalf("Token after Clear = %q", s.Token())
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"live jwt", signedToken(t, now.Add(time.Hour)), false},
		{"expired jwt", signedToken(t, now.Add(-time.Hour)), true},
		{"opaque token", "not-a-jwt", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewTokenStore(tc.token)
			if got := s.Expired(now); got != tc.want {
				t.Fatalf("Expired = %v, want %v", got, tc.want)
			}
		})
	}
}
