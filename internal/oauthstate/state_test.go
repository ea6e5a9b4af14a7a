package oauthstate

import (
	"errors"
	"strings"
	"testing"
)

func TestMintAndVerify(t *testing.T) {
	s := NewSigner("test-secret")
	state, err := s.Mint()
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if state == "" {
		t.Fatal("empty state token")
	}
	if err := s.Verify(state); err != nil {
		t.Errorf("Verify failed for freshly minted state: %v", err)
	}
}

func TestMintIsUniquePerLogin(t *testing.T) {
	s := NewSigner("test-secret")
	a, _ := s.Mint()
	b, _ := s.Mint()
	if a == b {
		t.Error("two mints produced the same state token")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewSigner("test-secret")
	state, _ := s.Mint()

	tampered := state[:len(state)-2] + "xx"
	if err := s.Verify(tampered); !errors.Is(err, ErrInvalidState) {
		t.Errorf("tampered state accepted: %v", err)
	}

	if err := s.Verify("not-a-token"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("garbage state accepted: %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	state, _ := NewSigner("secret-a").Mint()
	if err := NewSigner("secret-b").Verify(state); !errors.Is(err, ErrInvalidState) {
		t.Errorf("state signed under another secret accepted: %v", err)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	s := NewSigner("test-secret")
	// alg=none token: header {"alg":"none","typ":"JWT"}, empty signature.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJub25jZSI6IngifQ."
	if err := s.Verify(unsigned); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unsigned token accepted: %v", err)
	}
	if !strings.Contains(unsigned, ".") {
		t.Fatal("fixture is not a JWT")
	}
}
