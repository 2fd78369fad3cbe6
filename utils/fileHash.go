package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// FileChecksum returns the hex sha256 of an uploaded file's bytes. Upload logs
// store it so repeated uploads of the same file can be recognised.
func FileChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
