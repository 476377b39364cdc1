// Package cache provides the layered answer cache: a go-cache backed
// memory layer in front of a JSON disk layer.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache defines the caching interface
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// AnswerKey derives the cache key for an answered query. The index
// fingerprint is part of the key so a rebuilt corpus never serves stale
// answers.
func AnswerKey(query string, topK int, fingerprint string) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s", query, topK, fingerprint))
	return "lexica:v1:" + hex.EncodeToString(hash[:])
}
