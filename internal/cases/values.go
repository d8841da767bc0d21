package cases

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/apiparity/internal/spec"
)

// Fixed values used by synthesis. They never vary between runs.
const (
	sampleDate     = "2020-01-01"
	sampleDateTime = "2020-01-01T00:00:00Z"
	sampleUUID     = "00000000-0000-4000-8000-000000000000"
	sampleEmail    = "test@example.com"
	sampleURI      = "https://example.com/"

	invalidDate    = "2020-13-45"
	notInEnum      = "__not_in_enum__"
	notANumber     = "not_a_number"
	notABoolean    = "not_a_boolean"
	malformedDate  = "not-a-date"
	malformedUUID  = "not-a-uuid"
	invertedStart  = "2023-12-31"
	invertedEnd    = "2020-01-01"
	stringFillUnit = "test"
)

// Sample synthesizes a deterministic valid value for s, rendered as a
// request parameter string. Precedence: default, first enum member,
// example, then a value derived from type and format.
func Sample(s *spec.Schema) string {
	s = s.Resolve()
	if s == nil {
		return stringFillUnit
	}
	if s.Default != nil {
		return render(s.Default)
	}
	if len(s.Enum) > 0 {
		return render(s.Enum[0])
	}
	if s.Example != nil {
		return render(s.Example)
	}

	switch s.PrimaryType() {
	case "integer":
		return render(numericSample(s, 1))
	case "number":
		return render(numericSample(s, 1))
	case "boolean":
		return "true"
	case "array":
		if s.Items != nil {
			return Sample(s.Items)
		}
		return stringFillUnit
	}

	switch s.Format {
	case "date":
		return sampleDate
	case "date-time":
		return sampleDateTime
	case "uuid":
		return sampleUUID
	case "email":
		return sampleEmail
	case "uri", "url":
		return sampleURI
	}

	n := len(stringFillUnit)
	if s.MinLength != nil && *s.MinLength > n {
		n = *s.MinLength
	}
	if s.MaxLength != nil && *s.MaxLength < n {
		n = *s.MaxLength
	}
	return fill(n)
}

// numericSample returns the minimum (or the first value above an
// exclusive minimum) when one is declared, else fallback clamped under
// the maximum.
func numericSample(s *spec.Schema, fallback float64) float64 {
	step := stepOf(s)
	if s.Minimum != nil {
		if s.ExclusiveMinimum {
			return *s.Minimum + step
		}
		return *s.Minimum
	}
	if s.Maximum != nil && fallback > *s.Maximum {
		if s.ExclusiveMaximum {
			return *s.Maximum - step
		}
		return *s.Maximum
	}
	return fallback
}

// stepOf is the distance used to move one value past a numeric bound.
func stepOf(s *spec.Schema) float64 {
	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		return *s.MultipleOf
	}
	return 1
}

// fill returns a string of n characters built from repeated "test".
func fill(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(stringFillUnit, n/len(stringFillUnit)+1)[:n]
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = render(e)
		}
		return strings.Join(parts, ",")
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
