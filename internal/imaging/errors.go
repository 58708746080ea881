package imaging

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification. An *Error matches the sentinel
// of its Kind under errors.Is.
var (
	ErrDecode            = errors.New("decode failed")
	ErrInvalidThresholds = errors.New("invalid thresholds")
	ErrEmptyGrid         = errors.New("empty grid")
	ErrMalformedGrid     = errors.New("malformed grid")
	ErrEncode            = errors.New("encode failed")
)

// Kind is a coarse-grained categorization of pipeline failures.
type Kind string

const (
	KindDecode            Kind = "decode"
	KindInvalidThresholds Kind = "invalid_thresholds"
	KindEmptyGrid         Kind = "empty_grid"
	KindMalformedGrid     Kind = "malformed_grid"
	KindEncode            Kind = "encode"
)

var kindSentinels = map[Kind]error{
	KindDecode:            ErrDecode,
	KindInvalidThresholds: ErrInvalidThresholds,
	KindEmptyGrid:         ErrEmptyGrid,
	KindMalformedGrid:     ErrMalformedGrid,
	KindEncode:            ErrEncode,
}

// Error wraps an underlying error with the operation that failed and its kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// IsKind classifies err without callers having to unwrap it themselves.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}
