package registry

import (
	"errors"
	"fmt"
)

// ErrIntegrity matches every *RegistryIntegrityError.
var ErrIntegrity = errors.New("registry integrity violated")

// RegistryIntegrityError reports a structural problem found by Build.
type RegistryIntegrityError struct {
	Kind   string // "body", "region" or "lattice"
	Name   string
	Reason string
}

func (e *RegistryIntegrityError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Name, e.Reason)
}

func (e *RegistryIntegrityError) Unwrap() error { return ErrIntegrity }
