// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling and
// boolean operations behind this interface. The kernel abstraction
// allows swapping backends without changing the rest of the system.
package kernel

import (
	"errors"
	"fmt"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/solid"
)

// ErrUnsupported is returned by kernels that cannot realise a shape.
var ErrUnsupported = errors.New("kernel: shape not supported by this kernel")

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns a conservative axis-aligned bounding box.
	BoundingBox() geom.Extent
}

// Kernel is the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling behind this interface.
// All primitives are centred on the origin; axial shapes run along Z.
type Kernel interface {
	// Name identifies the backend in logs and configuration.
	Name() string

	// Primitives
	Box(size geom.Vector3) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64, segments int) (Solid, error)
	Cone(height, bottom, top float64) (Solid, error)
	EllipticalTube(a, b, height float64) (Solid, error)
	Ellipsoid(a, b, c float64) (Solid, error)
	// Polyhedron is the intersection of the inner half-spaces of planes,
	// limited to bounds.
	Polyhedron(planes []geom.Plane, bounds geom.Extent) (Solid, error)
	Quadric(q solid.Quadric) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Transform(s Solid, t geom.Transform) Solid

	// Queries
	IsNull(s Solid) (bool, error)
	Volume(s Solid) (float64, error)
	// Bounds returns a tight bounding box; ok is false for null solids.
	Bounds(s Solid) (e geom.Extent, ok bool, err error)
	Contains(s Solid, p geom.Vector3) bool

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Realise builds the kernel solid for a placed shape description.
func Realise(k Kernel, p solid.Placed) (Solid, error) {
	s, err := shape(k, p.Shape)
	if err != nil {
		return nil, err
	}
	if p.Transform.IsIdentity() {
		return s, nil
	}
	return k.Transform(s, p.Transform), nil
}

func shape(k Kernel, s solid.Shape) (Solid, error) {
	switch sh := s.(type) {
	case solid.Box:
		return k.Box(sh.Size)
	case solid.Sphere:
		return k.Sphere(sh.Radius)
	case solid.Tube:
		return k.Cylinder(sh.Height, sh.Radius, segmentsFor(sh.Radius))
	case solid.Cone:
		return k.Cone(sh.Height, sh.Bottom, sh.Top)
	case solid.EllipticalTube:
		return k.EllipticalTube(sh.A, sh.B, sh.Height)
	case solid.Ellipsoid:
		return k.Ellipsoid(sh.A, sh.B, sh.C)
	case solid.Polyhedron:
		planes, err := sh.Planes()
		if err != nil {
			return nil, err
		}
		return k.Polyhedron(planes, sh.Extent())
	case solid.Quadric:
		return k.Quadric(sh)
	default:
		return nil, fmt.Errorf("kernel: unknown shape %T", s)
	}
}

// segmentsFor picks a circular resolution for mesh kernels.
func segmentsFor(radius float64) int {
	switch {
	case radius < 1:
		return 16
	case radius < 100:
		return 64
	default:
		return 128
	}
}
