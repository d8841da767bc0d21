// Package cases derives executable test cases.
//
// The openapi suite is generated from an InterfaceSpec by three
// strategies: valid (required parameters only, then every optional
// parameter), boundary (each constrained parameter at and just past its
// limits) and invalid (wrong types, missing required parameters,
// malformed formats). Generation is deterministic: the same document and
// strategy always yield the same sequence of cases with the same IDs.
//
// The behavioral suite is a fixed catalog built from configuration. Each
// behavioral case carries the requests it needs and the assertion that
// turns their results into an outcome.
package cases
