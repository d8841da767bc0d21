// Package harness runs one suite against one base URL.
//
// An Orchestrator moves through a fixed sequence of states:
//
//	Idle -> Loading -> Generating -> Executing -> Reporting -> Done
//
// Loading fails the whole run (terminal state Errored, no report) when
// the description document cannot be loaded. Every other problem is
// captured per case: Executing continues past failed, errored and
// aborted cases, and Reporting always receives a finalized SuiteReport.
//
// # Concurrency
//
// Cases run on a bounded worker pool. Each job owns its probe results;
// the only shared write is the collector's append, guarded by a mutex that
// is never held across I/O. A run timeout cancels in-flight probes (their
// cases become error/aborted) and skips cases that never started.
//
// # Determinism
//
// Outcomes are sorted at aggregation time, so a report lists cases in the
// same order however execution interleaved. Tests inject a fixed clock and
// run ID generator (see internal/testutil) to make whole reports
// reproducible.
package harness
