// Package validator checks decoded payloads against resolved schemas from
// package spec and reports every violation with its location.
//
// Paths use dotted/bracketed notation rooted at "$": "documents[2].id",
// `documents["D1.2"].title`. Recursive schema back-references are followed
// lazily, so self-referential documents validate without unbounded descent
// beyond the payload's own depth.
package validator
