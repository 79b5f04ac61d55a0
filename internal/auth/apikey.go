// Package auth generates and checks the API key that protects the uplink API
// when it listens beyond loopback. Only a bcrypt hash of the key is stored in
// the configuration file.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyLength is the length of the random part of an API key.
	APIKeyLength = 32
	// APIKeyPrefix is the prefix of every API key.
	APIKeyPrefix = "upl"

	BcryptCost           = 12
	BcryptMaxInputLength = 72

	MaxAPIKeyNameLength = 255
)

// GeneratedAPIKey is a new key and its hash. Key is only shown once.
type GeneratedAPIKey struct {
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	KeyPrefix string    `json:"key_prefix"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateAPIKey creates and hashes a new API key.
func GenerateAPIKey(name string) (*GeneratedAPIKey, error) {
	if err := validateKeyName(name); err != nil {
		return nil, fmt.Errorf("invalid key name: %w", err)
	}

	randomBytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	// base32 avoids ambiguous characters.
	randomPart := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes))
	randomPart = randomPart[:APIKeyLength]

	fullKey := fmt.Sprintf("%s_%s", APIKeyPrefix, randomPart)

	hash, err := HashAPIKey(fullKey)
	if err != nil {
		return nil, err
	}

	return &GeneratedAPIKey{
		Name:      name,
		Key:       fullKey,
		KeyPrefix: CreateDisplayPrefix(fullKey),
		Hash:      hash,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// keyBytes prepares a key for bcrypt, which ignores input past 72 bytes.
func keyBytes(apiKey string) []byte {
	b := []byte(apiKey)
	if len(b) > BcryptMaxInputLength {
		sum := sha256.Sum256(b)
		b = sum[:]
	}
	return b
}

// HashAPIKey creates a bcrypt hash of an API key.
func HashAPIKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword(keyBytes(apiKey), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hash), nil
}

// ValidateAPIKey checks a presented key against the stored hash.
func ValidateAPIKey(apiKey, storedHash string) bool {
	if apiKey == "" || storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), keyBytes(apiKey)) == nil
}

// IsValidAPIKeyFormat checks prefix, length and alphabet.
func IsValidAPIKeyFormat(apiKey string) bool {
	if !strings.HasPrefix(apiKey, APIKeyPrefix+"_") {
		return false
	}
	if len(apiKey) < 15 || len(apiKey) > 50 {
		return false
	}

	for _, char := range apiKey {
		if (char < 'a' || char > 'z') &&
			(char < 'A' || char > 'Z') &&
			(char < '0' || char > '9') &&
			char != '_' {
			return false
		}
	}
	return true
}

// CreateDisplayPrefix returns a loggable prefix such as "upl_abcdefgh...".
func CreateDisplayPrefix(apiKey string) string {
	if !IsValidAPIKeyFormat(apiKey) {
		return "invalid_key"
	}

	parts := strings.SplitN(apiKey, "_", 2)
	if len(parts[1]) >= 8 {
		return fmt.Sprintf("%s_%s...", parts[0], parts[1][:8])
	}
	return fmt.Sprintf("%s_%s...", parts[0], parts[1])
}

func validateKeyName(name string) error {
	if name == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	if len(name) > MaxAPIKeyNameLength {
		return fmt.Errorf("key name must be at most %d characters", MaxAPIKeyNameLength)
	}

	for _, char := range name {
		// C0/C1 controls and bidirectional overrides
		if char < 32 || char == 127 ||
			(char >= 0x0080 && char <= 0x009F) ||
			(char >= 0x202A && char <= 0x202E) ||
			(char >= 0x2066 && char <= 0x2069) {
			return fmt.Errorf("key name contains invalid characters")
		}
	}
	return nil
}
