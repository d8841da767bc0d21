package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/roach88/apiparity/internal/ir"
	"github.com/roach88/apiparity/internal/spec"
)

// maxDepth bounds payload nesting; deeper payloads yield a violation.
const maxDepth = 256

// Result is the outcome of validating one payload.
type Result struct {
	OK         bool
	Violations []ir.Violation
}

// Validator validates payloads. It caches compiled patterns and is safe for
// concurrent use.
type Validator struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// New creates a Validator.
func New() *Validator {
	return &Validator{patterns: make(map[string]*regexp.Regexp)}
}

var defaultValidator = New()

// Validate checks payload against s using a shared Validator.
func Validate(payload any, s *spec.Schema) Result {
	return defaultValidator.Validate(payload, s)
}

// Validate checks payload against s. A nil schema accepts anything.
func (v *Validator) Validate(payload any, s *spec.Schema) Result {
	w := &walk{v: v}
	w.check(payload, s, "$", 0)
	return Result{OK: len(w.violations) == 0, Violations: w.violations}
}

type walk struct {
	v          *Validator
	violations []ir.Violation
}

func (w *walk) fail(path, format string, args ...any) {
	w.violations = append(w.violations, ir.Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

// kind classifies a payload value into a JSON type name. Numbers are
// returned as float64 alongside "integer" or "number".
func kind(x any) (string, float64, bool) {
	switch n := x.(type) {
	case nil:
		return "null", 0, true
	case bool:
		return "boolean", 0, true
	case string:
		return "string", 0, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return "integer", float64(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return "", 0, false
		}
		return numberKind(f), f, true
	case float64:
		return numberKind(n), n, true
	case float32:
		return numberKind(float64(n)), float64(n), true
	case int:
		return "integer", float64(n), true
	case int8:
		return "integer", float64(n), true
	case int16:
		return "integer", float64(n), true
	case int32:
		return "integer", float64(n), true
	case int64:
		return "integer", float64(n), true
	case uint:
		return "integer", float64(n), true
	case uint8:
		return "integer", float64(n), true
	case uint16:
		return "integer", float64(n), true
	case uint32:
		return "integer", float64(n), true
	case uint64:
		return "integer", float64(n), true
	case []any:
		return "array", 0, true
	case map[string]any:
		return "object", 0, true
	}
	return "", 0, false
}

func numberKind(f float64) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		return "integer"
	}
	return "number"
}

func typeMatches(declared, actual string) bool {
	return declared == actual || (declared == "number" && actual == "integer")
}

func (w *walk) check(x any, s *spec.Schema, path string, depth int) {
	if s == nil {
		return
	}
	if depth > maxDepth {
		w.fail(path, "payload nesting exceeds %d levels", maxDepth)
		return
	}
	if s.Recursive {
		target := s.Resolve()
		if target == nil {
			w.fail(path, "unresolved schema reference %s", s.Ref)
			return
		}
		s = target
	}

	actual, num, ok := kind(x)
	if !ok {
		w.fail(path, "unsupported value of Go type %s", reflect.TypeOf(x))
		return
	}

	if len(s.Types) > 0 && !slices.ContainsFunc(s.Types, func(t string) bool { return typeMatches(t, actual) }) {
		w.fail(path, "expected %s, got %s", strings.Join(s.Types, " or "), actual)
		return
	}

	if len(s.Enum) > 0 && !inEnum(x, s.Enum) {
		w.fail(path, "value %s is not one of %s", describe(x), describe(s.Enum))
	}

	switch actual {
	case "string":
		w.checkString(x.(string), s, path)
	case "integer", "number":
		w.checkNumber(num, s, path)
	case "array":
		w.checkArray(x.([]any), s, path, depth)
	case "object":
		w.checkObject(x.(map[string]any), s, path, depth)
	}

	for _, sub := range s.AllOf {
		w.check(x, sub, path, depth+1)
	}
	if len(s.AnyOf) > 0 {
		matched := 0
		for _, sub := range s.AnyOf {
			if w.matches(x, sub, depth) {
				matched++
				break
			}
		}
		if matched == 0 {
			w.fail(path, "value matches none of %d anyOf schemas", len(s.AnyOf))
		}
	}
	if len(s.OneOf) > 0 {
		matched := 0
		for _, sub := range s.OneOf {
			if w.matches(x, sub, depth) {
				matched++
			}
		}
		if matched != 1 {
			w.fail(path, "value matches %d oneOf schemas, want exactly 1", matched)
		}
	}
}

// matches validates x against s in isolation, discarding violations.
func (w *walk) matches(x any, s *spec.Schema, depth int) bool {
	sub := &walk{v: w.v}
	sub.check(x, s, "$", depth+1)
	return len(sub.violations) == 0
}

func (w *walk) checkString(str string, s *spec.Schema, path string) {
	n := utf8.RuneCountInString(str)
	if s.MinLength != nil && n < *s.MinLength {
		w.fail(path, "length %d is below minLength %d", n, *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		w.fail(path, "length %d exceeds maxLength %d", n, *s.MaxLength)
	}
	if s.Pattern != "" {
		re, err := w.v.pattern(s.Pattern)
		if err != nil {
			w.fail(path, "schema pattern %q does not compile: %v", s.Pattern, err)
		} else if !re.MatchString(str) {
			w.fail(path, "value %q does not match pattern %q", str, s.Pattern)
		}
	}
	if msg := checkFormat(s.Format, str); msg != "" {
		w.fail(path, "%s", msg)
	}
}

func (w *walk) checkNumber(f float64, s *spec.Schema, path string) {
	if s.Minimum != nil {
		if s.ExclusiveMinimum && f <= *s.Minimum {
			w.fail(path, "value %s must be greater than %s", fmtNum(f), fmtNum(*s.Minimum))
		} else if f < *s.Minimum {
			w.fail(path, "value %s is below minimum %s", fmtNum(f), fmtNum(*s.Minimum))
		}
	}
	if s.Maximum != nil {
		if s.ExclusiveMaximum && f >= *s.Maximum {
			w.fail(path, "value %s must be less than %s", fmtNum(f), fmtNum(*s.Maximum))
		} else if f > *s.Maximum {
			w.fail(path, "value %s exceeds maximum %s", fmtNum(f), fmtNum(*s.Maximum))
		}
	}
	if s.MultipleOf != nil && *s.MultipleOf > 0 {
		q := f / *s.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			w.fail(path, "value %s is not a multiple of %s", fmtNum(f), fmtNum(*s.MultipleOf))
		}
	}
}

func (w *walk) checkArray(arr []any, s *spec.Schema, path string, depth int) {
	if s.MinItems != nil && len(arr) < *s.MinItems {
		w.fail(path, "%d items, want at least %d", len(arr), *s.MinItems)
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		w.fail(path, "%d items, want at most %d", len(arr), *s.MaxItems)
	}
	if s.UniqueItems {
		seen := make(map[string]int, len(arr))
		for i, item := range arr {
			key, err := ir.Canonical(item)
			if err != nil {
				continue
			}
			if j, dup := seen[string(key)]; dup {
				w.fail(IndexPath(path, i), "duplicate of item %d", j)
				continue
			}
			seen[string(key)] = i
		}
	}
	if s.Items != nil {
		for i, item := range arr {
			w.check(item, s.Items, IndexPath(path, i), depth+1)
		}
	}
}

func (w *walk) checkObject(obj map[string]any, s *spec.Schema, path string, depth int) {
	if s.MinProperties != nil && len(obj) < *s.MinProperties {
		w.fail(path, "%d properties, want at least %d", len(obj), *s.MinProperties)
	}
	if s.MaxProperties != nil && len(obj) > *s.MaxProperties {
		w.fail(path, "%d properties, want at most %d", len(obj), *s.MaxProperties)
	}
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			w.fail(KeyPath(path, name), "required property is missing")
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		val := obj[k]
		if ps, ok := s.Properties[k]; ok {
			w.check(val, ps, KeyPath(path, k), depth+1)
			continue
		}
		switch {
		case s.NoAdditional:
			w.fail(KeyPath(path, k), "property is not allowed")
		case s.AdditionalProperties != nil:
			w.check(val, s.AdditionalProperties, KeyPath(path, k), depth+1)
		}
	}
}

func (v *Validator) pattern(p string) (*regexp.Regexp, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if re, ok := v.patterns[p]; ok {
		return re, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	v.patterns[p] = re
	return re, nil
}

// checkFormat returns a violation message, or "" when str satisfies format.
// Unknown formats are accepted.
func checkFormat(format, str string) string {
	switch format {
	case "date":
		if _, err := time.Parse(time.DateOnly, str); err != nil {
			return fmt.Sprintf("value %q is not a valid date (YYYY-MM-DD)", str)
		}
	case "date-time":
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			return fmt.Sprintf("value %q is not a valid RFC 3339 date-time", str)
		}
	case "uuid":
		if len(str) != 36 {
			return fmt.Sprintf("value %q is not a valid uuid", str)
		}
		if _, err := uuid.Parse(str); err != nil {
			return fmt.Sprintf("value %q is not a valid uuid", str)
		}
	case "uri":
		u, err := url.Parse(str)
		if err != nil || u.Scheme == "" {
			return fmt.Sprintf("value %q is not an absolute URI", str)
		}
	case "email":
		addr, err := mail.ParseAddress(str)
		if err != nil || addr.Address != str {
			return fmt.Sprintf("value %q is not a valid email address", str)
		}
	}
	return ""
}

func inEnum(x any, enum []any) bool {
	for _, e := range enum {
		if ir.CanonicalEqual(x, e) {
			return true
		}
	}
	return false
}

func describe(x any) string {
	b, err := ir.Canonical(x)
	if err != nil {
		return fmt.Sprintf("%v", x)
	}
	return string(b)
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// KeyPath appends an object key to a violation path. Identifier keys use
// dot notation, others are quoted in brackets. The root "$" is dropped.
func KeyPath(parent, key string) string {
	if identifier.MatchString(key) {
		if parent == "$" {
			return key
		}
		return parent + "." + key
	}
	if parent == "$" {
		parent = ""
	}
	return parent + "[" + strconv.Quote(key) + "]"
}

// IndexPath appends an array index to a violation path.
func IndexPath(parent string, i int) string {
	if parent == "$" {
		parent = ""
	}
	return parent + "[" + strconv.Itoa(i) + "]"
}
