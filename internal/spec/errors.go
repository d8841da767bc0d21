package spec

import (
	"errors"
	"fmt"
)

// LoadErrorCode categorizes spec load failures.
type LoadErrorCode string

const (
	// ErrCodeUnreachable indicates the document could not be read or fetched.
	ErrCodeUnreachable LoadErrorCode = "UNREACHABLE"

	// ErrCodeMalformed indicates the document is not valid YAML/JSON/CUE or
	// has a node of the wrong shape.
	ErrCodeMalformed LoadErrorCode = "MALFORMED"

	// ErrCodeSelfCheck indicates the document failed a structural self-check.
	ErrCodeSelfCheck LoadErrorCode = "SELF_CHECK"

	// ErrCodeMissingRef indicates a reference target does not exist.
	ErrCodeMissingRef LoadErrorCode = "MISSING_REF"

	// ErrCodeInvalidRef indicates a reference is not an internal JSON pointer.
	ErrCodeInvalidRef LoadErrorCode = "INVALID_REF"
)

// SpecLoadError is returned when a description document cannot be turned
// into an InterfaceSpec. It is the only error that aborts a whole run.
type SpecLoadError struct {
	Code LoadErrorCode

	// Source is the file path or URL being loaded.
	Source string

	// Pointer locates the offending node ("#/paths/~1wds/get"), if known.
	Pointer string

	Message string
	Err     error
}

// Error implements the error interface.
func (e *SpecLoadError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Pointer != "" {
		return fmt.Sprintf("%s: %s at %s (%s)", e.Code, msg, e.Pointer, e.Source)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, msg, e.Source)
}

func (e *SpecLoadError) Unwrap() error {
	return e.Err
}

// IsSpecLoadError reports whether err is or wraps a *SpecLoadError.
func IsSpecLoadError(err error) bool {
	var le *SpecLoadError
	return errors.As(err, &le)
}

func loadErr(code LoadErrorCode, source, pointer, format string, args ...any) *SpecLoadError {
	return &SpecLoadError{
		Code:    code,
		Source:  source,
		Pointer: pointer,
		Message: fmt.Sprintf(format, args...),
	}
}
