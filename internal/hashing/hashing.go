package hashing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Supported digest algorithm identifiers.
const (
	AlgSHA256  = "sha256"
	AlgSHA3256 = "sha3-256"
)

// CanonV1 is the only canonicalization format currently defined: JSON with
// lexicographically sorted object keys and no insignificant whitespace.
const CanonV1 = "v1"

// Hasher computes hex digests over a canonical serialization of structured
// values. Both the digest algorithm and the canonicalization version are
// fixed at construction time, so every record hashed by one Hasher instance
// can be re-verified by any other instance built with the same parameters.
type Hasher struct {
	alg     string
	version string
}

// New creates a Hasher for the given algorithm and canonicalization version.
func New(alg, version string) (*Hasher, error) {
	switch alg {
	case AlgSHA256, AlgSHA3256:
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", alg)
	}
	if version != CanonV1 {
		return nil, fmt.Errorf("unknown canonicalization version %q", version)
	}
	return &Hasher{alg: alg, version: version}, nil
}

// Default returns a SHA-256 / v1 Hasher.
func Default() *Hasher {
	return &Hasher{alg: AlgSHA256, version: CanonV1}
}

// Algorithm returns the digest algorithm identifier.
func (h *Hasher) Algorithm() string { return h.alg }

// Version returns the canonicalization version tag.
func (h *Hasher) Version() string { return h.version }

// Canonicalize serializes v into its canonical byte form. The value is
// round-tripped through encoding/json so that object keys come out sorted
// regardless of struct field order or map iteration order; numbers are kept
// as their literal JSON representation to avoid float re-formatting drift.
//
// An error here means the input is not JSON-serializable, which is a caller
// contract violation rather than a runtime condition to recover from.
func (h *Hasher) Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return canonical, nil
}

// Sum returns the hex-encoded digest of data using the configured algorithm.
func (h *Hasher) Sum(data []byte) string {
	switch h.alg {
	case AlgSHA3256:
		d := sha3.Sum256(data)
		return hex.EncodeToString(d[:])
	default:
		d := sha256.Sum256(data)
		return hex.EncodeToString(d[:])
	}
}

// Hash canonicalizes v and returns the hex digest of the canonical bytes.
func (h *Hasher) Hash(v any) (string, error) {
	canonical, err := h.Canonicalize(v)
	if err != nil {
		return "", err
	}
	return h.Sum(canonical), nil
}
