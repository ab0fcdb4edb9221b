// Package auth resolves API keys to principals. Keys are stored as
// SHA-256 hashes; the raw key never appears in configuration.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Key is one configured API key: its hash and the principal it
// authenticates.
type Key struct {
	KeyHash   string
	Principal string
}

// Authenticator validates API keys and returns the owning principal.
type Authenticator struct {
	keys map[string]Key // keyhash -> key
}

// NewAuthenticator creates an authenticator from configured keys.
func NewAuthenticator(keys []Key) *Authenticator {
	a := &Authenticator{keys: make(map[string]Key, len(keys))}
	for _, k := range keys {
		a.keys[k.KeyHash] = k
	}
	return a
}

// ValidatePrincipal resolves an API key to its principal id.
func (a *Authenticator) ValidatePrincipal(apiKey string) (string, error) {
	keyHash := HashAPIKey(apiKey)

	k, ok := a.keys[keyHash]
	if !ok {
		return "", fmt.Errorf("invalid API key")
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(k.KeyHash)) != 1 {
		return "", fmt.Errorf("invalid API key")
	}
	return k.Principal, nil
}

// ExtractAPIKey extracts the API key from the Authorization header.
func ExtractAPIKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
