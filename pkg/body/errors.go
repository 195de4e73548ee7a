package body

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	ErrGeometryConstraint = errors.New("geometry constraint violated")
	ErrAmbiguousWinding   = errors.New("ambiguous polyhedron winding")
)

// GeometryConstraintError reports malformed body parameters.
type GeometryConstraintError struct {
	Body   string
	Reason string
}

func (e *GeometryConstraintError) Error() string {
	return fmt.Sprintf("body %q: %s", e.Body, e.Reason)
}

func (e *GeometryConstraintError) Unwrap() error { return ErrGeometryConstraint }

func constraint(body, reason string) error {
	return &GeometryConstraintError{Body: body, Reason: reason}
}

// AmbiguousWindingError reports an ARB whose orientation could not be
// determined from either winding.
type AmbiguousWindingError struct {
	Body string
}

func (e *AmbiguousWindingError) Error() string {
	return fmt.Sprintf("body %q: face winding is ambiguous, both orientations are null", e.Body)
}

func (e *AmbiguousWindingError) Unwrap() error { return ErrAmbiguousWinding }
