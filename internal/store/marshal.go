package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/apiparity/internal/ir"
)

// timeLayout stores instants as sortable UTC text.
const timeLayout = time.RFC3339Nano

// marshalViolations converts violations to canonical JSON TEXT for storage.
func marshalViolations(violations []ir.Violation) (string, error) {
	list := make([]any, len(violations))
	for i, v := range violations {
		list[i] = map[string]any{"path": v.Path, "message": v.Message}
	}
	data, err := ir.Canonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal violations: %w", err)
	}
	return string(data), nil
}

// unmarshalViolations parses stored violations. An empty list yields nil so
// a read-back outcome equals the one that was written.
func unmarshalViolations(data string) ([]ir.Violation, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var violations []ir.Violation
	if err := json.Unmarshal([]byte(data), &violations); err != nil {
		return nil, fmt.Errorf("unmarshal violations: %w", err)
	}
	return violations, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
