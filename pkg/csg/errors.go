package csg

import (
	"errors"
	"fmt"
)

// ErrNullSolid matches every *NullSolidError.
var ErrNullSolid = errors.New("boolean operation yields an empty solid")

// NullSolidError reports a boolean operation whose result has no volume.
type NullSolidError struct {
	Region  string
	Zone    int
	Operand string // body whose operation emptied the solid; empty for a contradictory zone
}

func (e *NullSolidError) Error() string {
	if e.Operand == "" {
		return fmt.Sprintf("region %q zone %d: zone is empty", e.Region, e.Zone)
	}
	return fmt.Sprintf("region %q zone %d: operand %s leaves an empty solid", e.Region, e.Zone, e.Operand)
}

func (e *NullSolidError) Unwrap() error { return ErrNullSolid }
