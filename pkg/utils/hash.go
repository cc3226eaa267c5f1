package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateStringSHA256 computes the hex SHA-256 of a string.
func CalculateStringSHA256(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ShortSHA256 returns the first n hex characters of the SHA-256 of content.
// n <= 0 or n larger than the digest returns the full digest.
func ShortSHA256(content string, n int) string {
	full := CalculateStringSHA256(content)
	if n <= 0 || n >= len(full) {
		return full
	}
	return full[:n]
}
