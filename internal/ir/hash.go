package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix allows the algorithm
// to change without colliding with stored fingerprints.
const (
	DomainResultSet = "apiparity/result-set/v1"
	DomainDocument  = "apiparity/document/v1"
	DomainOutcomes  = "apiparity/outcomes/v1"
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

// Fingerprint returns the content hash of a decoded JSON value under the
// given domain. Equal canonical encodings yield equal fingerprints.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := Canonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ResultSetFingerprint hashes an ordered list of documents.
func ResultSetFingerprint(docs []any) (string, error) {
	return Fingerprint(DomainResultSet, docs)
}

// DocumentFingerprint hashes a single document.
func DocumentFingerprint(doc any) (string, error) {
	return Fingerprint(DomainDocument, doc)
}

// OutcomesFingerprint hashes the verdicts of a report: the case ID, status
// and kind of every outcome, in order. Messages and timings are excluded so
// two runs that reach the same verdicts share a fingerprint.
func OutcomesFingerprint(outcomes []Outcome) (string, error) {
	verdicts := make([]any, len(outcomes))
	for i, o := range outcomes {
		verdicts[i] = map[string]any{
			"case":    o.CaseID,
			"outcome": string(o.Status),
			"kind":    string(o.Kind),
		}
	}
	return Fingerprint(DomainOutcomes, verdicts)
}
