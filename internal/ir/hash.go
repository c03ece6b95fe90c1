package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different things from colliding.
// The version suffix allows the algorithm to change later.
const (
	DomainValue     = "sysa/value/v1"
	DomainSignature = "sysa/signature/v1"
	DomainSnapshot  = "sysa/snapshot/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ValueHash returns the content hash of a value's canonical form.
func ValueHash(v IRValue) (string, error) {
	b, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("value hash: %w", err)
	}
	return hashWithDomain(DomainValue, b), nil
}

// SignatureHash identifies one rule invocation by what it would compute:
// the rule, the component it runs against and the value that triggered it.
// A nil value, as for Once rules, is left out.
func SignatureHash(rule, component string, value IRValue) (string, error) {
	obj := IRObject{
		"rule":      IRString(rule),
		"component": IRString(component),
	}
	if value != nil {
		obj["value"] = value
	}
	b, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("signature hash for rule %q: %w", rule, err)
	}
	return hashWithDomain(DomainSignature, b), nil
}

// SnapshotHash hashes an already canonical document, typically a registry
// snapshot. Two runs with equal hashes produced identical content.
func SnapshotHash(canonical []byte) string {
	return hashWithDomain(DomainSnapshot, canonical)
}
