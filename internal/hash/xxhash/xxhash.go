// Package xxhash provides the content digest used for change detection.
package xxhash

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hasher implements crawler.Hasher using 64-bit xxhash.
type Hasher struct{}

// New returns an xxhash hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// HashString is Hash for text that is already a string.
func (h *Hasher) HashString(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}
