// Package crypto holds the hash function used to identify events.
package crypto

import (
	"crypto/sha256"
)

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}
