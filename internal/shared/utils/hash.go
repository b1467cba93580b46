package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher provides extensible hashing functionality
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	default:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashJSON computes a hash of a JSON-serializable object.
// Struct field order is fixed, so equal values hash equally.
func (h *Hasher) HashJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return h.Hash(data), nil
}

// HashFields computes a hash from multiple ordered fields.
// Each field is length-prefixed so ("ab","c") and ("a","bc") differ.
func (h *Hasher) HashFields(fields ...string) string {
	var sb strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&sb, "%d:%s|", len(f), f)
	}
	return h.HashString(sb.String())
}

// AssertionFingerprint derives a cache key for a compiled assertion list.
// Order matters: reordering assertions changes indices and the key.
func (h *Hasher) AssertionFingerprint(assertions []types.Assertion) string {
	fields := make([]string, 0, len(assertions)*3)
	for _, a := range assertions {
		fields = append(fields, fmt.Sprintf("%d", a.Index), a.Name, a.PredicateSource)
	}
	return h.HashFields(fields...)
}

// ShortHash returns an 8-character prefix for display
func ShortHash(fullHash string) string {
	if len(fullHash) < 8 {
		return fullHash
	}
	return fullHash[:8]
}
