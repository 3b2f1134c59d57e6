package util

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestResetTokenRoundTrip(t *testing.T) {
	mgr := NewResetTokenManager("reset-secret", DefaultResetTokenTTL)

	token, expiresAt, err := mgr.Generate(42, "jdoe", "jdoe@example.com", "https://moodle.example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if remaining := time.Until(expiresAt); remaining <= 0 || remaining > DefaultResetTokenTTL {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d, want 42", claims.UserID)
	}
	if claims.Username != "jdoe" {
		t.Fatalf("username = %q", claims.Username)
	}
	if claims.Email != "jdoe@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.MoodleURL != "https://moodle.example.com" {
		t.Fatalf("moodle url = %q", claims.MoodleURL)
	}
	if claims.Type != ResetTokenType {
		t.Fatalf("type = %q", claims.Type)
	}
}

func TestResetTokenExpired(t *testing.T) {
	mgr := NewResetTokenManager("reset-secret", time.Millisecond)

	token, _, err := mgr.Generate(7, "u", "u@example.com", "https://m.example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := mgr.Parse(token); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestResetTokenWrongSecret(t *testing.T) {
	mgr := NewResetTokenManager("secret-a", DefaultResetTokenTTL)
	other := NewResetTokenManager("secret-b", DefaultResetTokenTTL)

	token, _, err := mgr.Generate(7, "u", "u@example.com", "https://m.example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := other.Parse(token); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestResetTokenGarbage(t *testing.T) {
	mgr := NewResetTokenManager("reset-secret", DefaultResetTokenTTL)

	if _, err := mgr.Parse("not.a.token"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager("session-secret", 24*time.Hour)

	id := uuid.New()
	token, _, err := mgr.Generate(id, "admin@oxypass.com", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != id {
		t.Fatalf("user id = %s, want %s", claims.UserID, id)
	}
	if claims.Role != "admin" {
		t.Fatalf("role = %q", claims.Role)
	}
}
