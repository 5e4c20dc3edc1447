package access_key

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// keyByteLength is the entropy of each generated token before hex encoding.
const keyByteLength = 24

// GenerateKeyPair creates a random client/secret token pair. The plaintext
// pair is handed to the caller once; only hashes are ever stored.
func GenerateKeyPair() (client, secret string, err error) {
	clientBytes := make([]byte, keyByteLength)
	if _, err := rand.Read(clientBytes); err != nil {
		return "", "", err
	}
	secretBytes := make([]byte, keyByteLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(clientBytes), hex.EncodeToString(secretBytes), nil
}

// HashKey computes the one-way hash stored and compared for a token. It is
// deterministic so the verification path can look keys up by hash.
func HashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ExpirationDate returns now + validDays
func ExpirationDate(validDays int) time.Time {
	return time.Now().AddDate(0, 0, validDays)
}
