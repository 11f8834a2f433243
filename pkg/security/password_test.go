package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	if err := security.CheckPasswordPolicy("12345"); err != security.ErrPasswordTooShort {
		t.Fatalf("expected too-short error, got %v", err)
	}
	if err := security.CheckPasswordPolicy("123456"); err != nil {
		t.Fatalf("six characters should pass: %v", err)
	}
	if err := security.CheckPasswordPolicy("pässw0"); err != nil {
		t.Fatalf("length counts characters, not bytes: %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	cheap := config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	hash, err := security.HashPassword("hunter22", cheap)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if security.NeedsRehash(hash, cheap) {
		t.Fatal("hash produced with current costs should not need a rehash")
	}
	stronger := cheap
	stronger.ArgonTime = 2
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("raising the time cost should require a rehash")
	}
	if !security.NeedsRehash("not-a-hash", cheap) {
		t.Fatal("malformed hash should require a rehash")
	}
}

func TestVerifyPasswordRejectsUnknownVersion(t *testing.T) {
	hash, err := security.HashPassword("hunter22", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	tampered := strings.Replace(hash, "v=19", "v=16", 1)
	if _, err := security.VerifyPassword("hunter22", tampered); err != security.ErrInvalidHash {
		t.Fatalf("expected invalid hash error, got %v", err)
	}
}
