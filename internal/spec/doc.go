// Package spec loads interface description documents (OpenAPI 3.x) into an
// in-memory model with every internal reference resolved.
//
// Documents may be YAML, JSON or CUE. Loading runs three phases:
//
//  1. Structural self-check of the raw document against an embedded
//     meta-schema (openapi version, info, paths, non-empty responses).
//  2. Model construction with recursive "$ref" resolution. Pointers under
//     expansion are tracked on a stack; revisiting one yields a named
//     back-reference (Schema.Recursive) instead of infinite expansion.
//  3. Domain self-check: every operation declares at least one response
//     schema.
//
// Any failure is reported as a *SpecLoadError, which aborts a run.
package spec
