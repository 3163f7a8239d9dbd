package glyphtrain

import "fmt"

// ErrorCode tags a DataError with a machine-checkable category so a cmd/
// driver can pick an exit status without parsing the message, mirroring
// the "structured error code plus one-line message" policy of spec.md §7.
type ErrorCode string

const (
	// ErrMalformedParamDesc marks a ParamDesc header that doesn't parse.
	ErrMalformedParamDesc ErrorCode = "malformed_paramdesc"
	// ErrMalformedPrototype marks a normproto record with the wrong shape.
	ErrMalformedPrototype ErrorCode = "malformed_prototype"
	// ErrUnknownDistribution marks an unrecognised distribution tag.
	ErrUnknownDistribution ErrorCode = "unknown_distribution"
	// ErrInvalidConfig marks a CLUSTERCONFIG field outside its valid range.
	ErrInvalidConfig ErrorCode = "invalid_config"
	// ErrClassOverflow is the code for a class-count overflow; cmd's
	// exitCodeFor gives it its own exit status. No package in this module
	// returns it.
	ErrClassOverflow ErrorCode = "class_overflow"
)

// DataError reports a structured data-shape failure: malformed input that
// is not a programmer error, but also not locally recoverable. Per
// spec.md §7, these abort the current operation rather than being retried.
type DataError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError builds a DataError with a formatted message.
func NewDataError(code ErrorCode, err error, format string, args ...any) *DataError {
	return &DataError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
