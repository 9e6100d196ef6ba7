package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for the mapper document store
type Cache interface {
	Get(key string) ([]byte, bool)
	// Set stores value; ttl <= 0 uses the cache default, and a default <= 0 never expires
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	// Keys lists the stored keys in lexical order
	Keys() ([]string, error)
}

// KeyPrefix namespaces every key written by trustmap
const KeyPrefix = "trustmap:v1:"

// Key generates a store key from a mapper id.
// The id is hashed so any id is safe as a file name.
func Key(id string) string {
	hash := sha256.Sum256([]byte(id))
	return KeyPrefix + hex.EncodeToString(hash[:])
}
