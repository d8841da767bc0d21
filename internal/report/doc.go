// Package report renders SuiteReports for people and machines: a JSON
// document CI can gate on (summary.failed == 0), a terminal rendering, an
// XLSX workbook and the JSON Schema of the JSON document.
//
// Suites are rendered side by side and never merged: each keeps its own
// summary and verdict, and the top-level summary is their plain sum.
package report
