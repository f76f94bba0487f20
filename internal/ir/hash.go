package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainObservation = "formsignal/observation/v1"
	DomainSnapshot    = "formsignal/snapshot/v1"
	DomainForm        = "formsignal/form/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes a snapshot record. Equal records always produce the
// same fingerprint regardless of map iteration order.
func Fingerprint(snapshot Object) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// ObservationID computes the content-addressed ID of a trace observation.
func ObservationID(sessionID string, seq int64, watch string, fingerprint string) (string, error) {
	obj := Object{
		"session_id":  String(sessionID),
		"seq":         Int(seq),
		"watch":       String(watch),
		"fingerprint": String(fingerprint),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ObservationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainObservation, canonical), nil
}

// FormHash hashes a compiled form definition so sessions can record which
// form revision they ran against.
func FormHash(spec ControlSpec) (string, error) {
	canonical, err := MarshalCanonical(spec.Object())
	if err != nil {
		return "", fmt.Errorf("FormHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainForm, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(snapshot Object) string {
	fp, err := Fingerprint(snapshot)
	if err != nil {
		panic(err)
	}
	return fp
}
