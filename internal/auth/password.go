package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes a plaintext password for storage. Grounded
// on ocx-backend-go-svc's API-key hashing (bcrypt.GenerateFromPassword).
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a bcrypt hash in
// bounded time (bcrypt.CompareHashAndPassword itself is constant-time
// with respect to the hash comparison; it does not short-circuit on the
// first mismatched byte, satisfying spec §4.2's "bounded-time
// comparison" requirement without a hand-rolled constant-time compare).
func VerifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// GenerateAPIKey returns a fresh 256-bit random key, its bcrypt hash for
// storage, and a 14-character display prefix (the "sk-sy-" marker plus
// the first 8 key characters). The plaintext is returned exactly once by
// the caller (spec §4.2 "API key").
func GenerateAPIKey() (plaintext, hash, prefix string, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("auth: generate api key: %w", err)
	}
	plaintext = "sk-sy-" + base64.RawURLEncoding.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("auth: hash api key: %w", err)
	}

	prefix = plaintext[:min(len(plaintext), 14)]
	return plaintext, string(hashed), prefix, nil
}

// VerifyAPIKey reports whether plaintext matches hash.
func VerifyAPIKey(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// hexNonce returns a random hex-encoded nonce used for token identity
// (refresh-token consumption tracking, session correlation).
func hexNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
