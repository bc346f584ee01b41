package extraction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/intake/internal/document"
)

// Failure kinds. Every *Error wraps exactly one of these.
var (
	ErrOracle            = errors.New("oracle call failed")
	ErrMalformedResponse = errors.New("malformed oracle response")
	ErrSchemaViolation   = errors.New("oracle response violates record schema")
)

// ErrUnknownMode is returned for a Mode other than TEXT or VISION.
var ErrUnknownMode = errors.New("unknown extraction mode")

// Error is a failed extraction attempt.
type Error struct {
	Mode        Mode
	Kind        error
	Diagnostics []document.FieldError // set for ErrSchemaViolation
	Raw         string                // oracle answer, if any
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s extraction: %v", strings.ToLower(string(e.Mode)), e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns the snake_case name of the failure kind of err, or "" if
// err is not an extraction failure.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrOracle):
		return "oracle"
	default:
		return ""
	}
}
