package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	tokens := NewTokens("secret")
	issued, err := tokens.Issue(NewClaims("user-1", "Avery", time.Hour, time.Now()))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := tokens.Parse(issued)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Sub != "user-1" || claims.Name != "Avery" || !strings.HasPrefix(claims.JTI, "tok_") {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tokens := NewTokens("secret")
	issued, err := tokens.Issue(NewClaims("user-1", "", time.Hour, time.Now().Add(-2*time.Hour)))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := tokens.Parse(issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issued, err := NewTokens("secret").Issue(NewClaims("user-1", "", time.Hour, time.Now()))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	for _, token := range []string{issued, "garbage", issued + ".extra", ""} {
		if _, err := NewTokens("other").Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
