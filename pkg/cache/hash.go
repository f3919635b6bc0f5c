package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// hashKey builds a "class:digest" cache key from a key class and the
// values that identify the entry. For graph keys the parts are the dump
// content hash and parse options; for report keys the graph hash and
// render options. Parts are streamed into the digest with a separator
// so adjacent values cannot run together ("ab","c" vs "a","bc").
func hashKey(class string, parts ...interface{}) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%v\x1f", p)
	}
	return class + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the SHA-256 digest of data as a 64-character hex string.
// It is the content address for raw dump bytes and canonical graphs.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
