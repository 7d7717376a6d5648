package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix leaves room for a
// future change of encoding.
const (
	DomainValue    = "rstate/value/v1"
	DomainScenario = "rstate/scenario/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of a value tree. Trees that marshal to the
// same canonical JSON hash the same, regardless of key insertion order.
func Hash(v Value) (string, error) {
	return HashDomain(DomainValue, v)
}

// HashDomain hashes v under an explicit domain prefix.
func HashDomain(domain string, v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash: failed to marshal: %w", err)
	}
	return hashWithDomain(domain, data), nil
}
