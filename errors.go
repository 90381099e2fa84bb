package marshal

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrVersion = errors.New("marshal: incompatible format version")

	ErrTruncated      = errors.New("truncated input")
	ErrUnknownTag     = errors.New("unrecognized tag")
	ErrUnknownSymbol  = errors.New("unknown symbol reference")
	ErrExpectedSymbol = errors.New("expected symbol")
	ErrTooDeep        = errors.New("recursion too deep")
	ErrBadLength      = errors.New("bad length")
	ErrBadFloat       = errors.New("bad float")
	ErrIntRange       = errors.New("integer out of range")

	ErrNoHost     = errors.New("no host object model configured")
	ErrNotPointer = errors.New("marshal: expected non-nil pointer")
)

// VersionError is returned by Load when the header does not carry
// MajorVersion and MinorVersion.
type VersionError struct {
	Major, Minor byte
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("marshal: bad version (%d.%d instead of %d.%d)", e.Major, e.Minor, MajorVersion, MinorVersion)
}

func (e *VersionError) Is(target error) bool { return target == ErrVersion }

// FormatError reports a malformed stream, or a graph too deep to encode.
// Offset is the byte position in the dump where the problem was found.
type FormatError struct {
	Offset int
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("marshal: %v at offset %d", e.Err, e.Offset)
}

func (e *FormatError) Unwrap() error { return e.Err }

// LookupError is returned when a class or module name cannot be resolved.
type LookupError struct {
	Kind string // "class" or "module"
	Path string
	Err  error
}

func (e *LookupError) Error() string {
	s := "marshal: unknown " + e.Kind + " " + e.Path
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *LookupError) Unwrap() error { return e.Err }

// UnsupportedTypeError is returned when a value cannot be represented.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return "marshal: unsupported type " + e.Type
}

// CyclicGraphError is returned when a container is reached again while it
// is still being encoded.
type CyclicGraphError struct {
	Type string
}

func (e *CyclicGraphError) Error() string {
	return "marshal: cyclic reference through " + e.Type
}
