package ir

// Version constants for the report format and the tool.
const (
	// ReportVersion is the version of the JSON report document.
	ReportVersion = "1"

	// ToolVersion is the apiparity release.
	ToolVersion = "0.1.0"
)
