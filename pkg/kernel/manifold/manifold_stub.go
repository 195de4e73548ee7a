//go:build !manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library. When the "manifold" build tag is not set, this stub
// package is compiled instead, returning ErrUnavailable from New().
//
// Build with: go build -tags=manifold
package manifold

import (
	"errors"

	"github.com/chazu/zonecsg/pkg/kernel"
)

// ErrUnavailable reports a build without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

// New returns ErrUnavailable.
func New() (kernel.Kernel, error) {
	return nil, ErrUnavailable
}
