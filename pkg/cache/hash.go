package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds a key of the form "prefix:<sha256>" over the JSON
// encoding of parts. Parts must be JSON-encodable.
func hashKey(prefix string, parts ...any) string {
	raw, _ := json.Marshal(parts)
	return prefix + ":" + Hash(raw)
}
