package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "" || hash == "secret1" {
		t.Fatalf("expected opaque hash, got %q", hash)
	}

	if err := h.Compare("secret1", hash); err != nil {
		t.Errorf("expected match, got %v", err)
	}

	if err := h.Compare("wrong", hash); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("expected ErrHashMismatch, got %v", err)
	}
}

func TestBcryptHasher_DistinctSaltPerCall(t *testing.T) {
	h := &BcryptHasher{Cost: bcrypt.MinCost}

	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if first == second {
		t.Error("expected distinct hashes for the same input")
	}
}

func TestBcryptHasher_ZeroValueUsesDefaultCost(t *testing.T) {
	var h BcryptHasher

	hash, err := h.Hash("p")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if err := h.Compare("p", hash); err != nil {
		t.Errorf("expected match, got %v", err)
	}
}

func TestQuickHash_Deterministic(t *testing.T) {
	a := QuickHash("user@example.com:pw")
	b := QuickHash("user@example.com:pw")
	c := QuickHash("user@example.com:other")

	if a != b {
		t.Error("expected equal digests for equal input")
	}
	if a == c {
		t.Error("expected different digests for different input")
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := ContextWithIdentity(context.Background(), "user@example.com")

	if got := IdentityFromContext(ctx); got != "user@example.com" {
		t.Errorf("expected identity to round-trip, got %q", got)
	}
	if got := IdentityFromContext(context.Background()); got != "" {
		t.Errorf("expected empty identity on bare context, got %q", got)
	}
}
