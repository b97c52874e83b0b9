package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix enables future
// algorithm migration without colliding with old digests.
const (
	DomainSnapshot = "easel/snapshot/v1"
	DomainAttempt  = "easel/attempt/v1"
	DomainTrace    = "easel/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashJSON computes the domain-separated digest of a value's canonical
// encoding. Returns an error if the value cannot be canonically encoded.
func HashJSON(domain string, v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// HashSnapshot computes the content digest of a snapshot. Two snapshots
// with the same entities in the same order share a digest regardless of
// map iteration order inside properties.
func HashSnapshot(s Snapshot) (string, error) {
	return HashJSON(DomainSnapshot, s)
}

// MustHashSnapshot is like HashSnapshot but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHashSnapshot(s Snapshot) string {
	digest, err := HashSnapshot(s)
	if err != nil {
		panic(err)
	}
	return digest
}

// Fingerprint digests a mutation attempt (action name plus payload) for the
// loop detector. It never fails: a payload that cannot be canonically
// encoded degrades to a type-level fingerprint, which still distinguishes
// "same action, same shape" repetition.
func Fingerprint(action string, payload any) string {
	body, err := CanonicalJSON(map[string]any{"action": action, "payload": payload})
	if err != nil {
		body = []byte(fmt.Sprintf(`{"action":%q,"payloadType":"%T"}`, action, payload))
	}
	return hashWithDomain(DomainAttempt, body)
}
