package output

import (
	"fmt"

	"github.com/Laisky/errors/v2"
)

// Reason classifies why a text could not be converted.
type Reason int

const (
	// ReasonNotANumber means the text is not a numeric literal of the target type.
	ReasonNotANumber Reason = iota + 1
	// ReasonOutOfRange means the literal is well formed but does not fit the target type.
	ReasonOutOfRange
	// ReasonInvalidFormat means the text does not follow the grammar of a non-numeric type.
	ReasonInvalidFormat
)

func (r Reason) String() string {
	switch r {
	case ReasonNotANumber:
		return "not a number"
	case ReasonOutOfRange:
		return "out of range"
	case ReasonInvalidFormat:
		return "invalid format"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// FormatError is returned by every parser in this package when the input does not
// conform to the grammar or range of the target type.
type FormatError struct {
	// Input is the offending text exactly as it was passed to Parse.
	Input string
	// Type names the target type, e.g. "int16" or "date".
	Type string
	// Reason classifies the failure.
	Reason Reason
	// Constraint describes the violated bound, e.g. "[-32768, 32767]". Optional.
	Constraint string
	// Err is the underlying conversion error, if any.
	Err error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("cannot parse %q as %s: %s", e.Input, e.Type, e.Reason)
	if e.Constraint != "" {
		msg += " " + e.Constraint
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// AsFormatError returns the first *FormatError in err's chain.
func AsFormatError(err error) (*FormatError, bool) {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsFormatError reports whether err's chain contains a *FormatError.
func IsFormatError(err error) bool {
	_, ok := AsFormatError(err)
	return ok
}

func newFormatError(input, typ string, reason Reason, cause error) *FormatError {
	return &FormatError{Input: input, Type: typ, Reason: reason, Err: cause}
}
