package analyzer

import "fmt"

// ErrorKind is the analyzer's internal error taxonomy (spec.md §4.3).
type ErrorKind string

const (
	ErrUndefinedReference     ErrorKind = "undefined_reference"
	ErrDuplicateDefinition    ErrorKind = "duplicate_definition"
	ErrCircularDependency     ErrorKind = "circular_dependency"
	ErrMissingRequiredProp    ErrorKind = "missing_required_property"
	ErrInvalidValue           ErrorKind = "invalid_value"
	ErrTypeMismatch           ErrorKind = "type_mismatch"
)

// Error is one analysis diagnostic. Offset is the byte position of the
// token that triggered it, when known.
type Error struct {
	Kind    ErrorKind
	Message string
	Offset  uint32
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at byte %d: %s", e.Kind, e.Offset, e.Message)
}
