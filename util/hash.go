package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex-encoded sha256 of a file's contents.
// The scanner uses it to detect unchanged files between scans.
func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
