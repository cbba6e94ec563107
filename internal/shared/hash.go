package shared

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the hex sha256 of data. The audit log stores these
// instead of document text so plaintext never lands in the database.
func ContentHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
