package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// API keys look like bl_<prefix>_<secret>. The prefix identifies the key
// row; only a bcrypt hash of the secret is stored.

const keyScheme = "bl"

// GenerateAPIKey returns the plaintext key (shown once), its prefix and
// the bcrypt hash of the secret part.
func GenerateAPIKey() (plaintext, prefix, hash string, err error) {
	prefixBytes := make([]byte, 6)
	if _, err = rand.Read(prefixBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key prefix: %w", err)
	}
	secretBytes := make([]byte, 24)
	if _, err = rand.Read(secretBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key secret: %w", err)
	}

	prefix = hex.EncodeToString(prefixBytes)
	secret := hex.EncodeToString(secretBytes)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash key secret: %w", err)
	}

	plaintext = fmt.Sprintf("%s_%s_%s", keyScheme, prefix, secret)
	return plaintext, prefix, string(hashed), nil
}

// SplitAPIKey parses a presented key into prefix and secret.
func SplitAPIKey(presented string) (prefix, secret string, err error) {
	parts := strings.Split(presented, "_")
	if len(parts) != 3 || parts[0] != keyScheme || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("malformed api key")
	}
	return parts[1], parts[2], nil
}

// CheckAPIKeySecret compares a presented secret against the stored hash.
func CheckAPIKeySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
