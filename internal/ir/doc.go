// Package ir provides the shared value types that flow between the
// verification engine and its collaborators.
//
// This package contains leaf definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps outcomes, reports and
// canonical encodings free of circular dependencies.
//
// Key design constraints:
//   - Outcomes are plain values; a SuiteReport is the only aggregate
//   - A SuiteReport is write-once: Finalize freezes it
//   - All JSON tags use snake_case
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for result-set comparison and fingerprints
package ir
