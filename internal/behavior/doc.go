// Package behavior holds the behavioral assertion catalog: business
// invariants of a document-search service that hold regardless of its
// declared schema (filtering correctness, pagination, consistency,
// uniqueness, graceful degradation, content negotiation).
//
// Every check is a pure function of one or more probe results and returns
// an ir.Outcome with Status, Kind, Message and Violations set; the caller
// fills in suite and case identity.
package behavior
