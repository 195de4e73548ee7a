// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// Every solid carries its own conservative extent next to the signed
// distance function. Queries (null test, volume, tight bounds) search that
// extent with an octree that prunes cells whose distance value proves them
// empty, so all distance functions built here stay 1-Lipschitz.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/solid"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// Default resolutions.
const (
	defaultMeshCells   = 200
	defaultNullCells   = 24
	defaultVolumeCells = 96
	defaultBoundsCells = 64
	defaultNullBudget  = 200000
	// nullTolerance is how far below zero a sample must be to count as
	// interior. Faces shared by touching solids evaluate to exactly zero.
	nullTolerance = 1e-9
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s     sdf.SDF3
	box   geom.Extent
	empty bool
}

// BoundingBox returns the conservative axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() geom.Extent {
	return s.box
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(n int) Option { return func(k *SdfxKernel) { k.meshCells = n } }

// WithNullCells sets the initial grid resolution of the null test.
func WithNullCells(n int) Option { return func(k *SdfxKernel) { k.nullCells = n } }

// WithVolumeCells sets the finest resolution of volume estimates.
func WithVolumeCells(n int) Option { return func(k *SdfxKernel) { k.volumeCells = n } }

// WithNullBudget caps the number of distance evaluations a null test may
// spend before switching to local minimisation.
func WithNullBudget(n int) Option { return func(k *SdfxKernel) { k.nullBudget = n } }

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	meshCells   int
	nullCells   int
	volumeCells int
	boundsCells int
	nullBudget  int
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{
		meshCells:   defaultMeshCells,
		nullCells:   defaultNullCells,
		volumeCells: defaultVolumeCells,
		boundsCells: defaultBoundsCells,
		nullBudget:  defaultNullBudget,
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Name returns "sdfx".
func (k *SdfxKernel) Name() string { return "sdfx" }

// unwrap extracts the underlying solid from a kernel.Solid.
func unwrap(s kernel.Solid) *sdfxSolid {
	return s.(*sdfxSolid)
}

// wrap creates a kernel.Solid from an sdf.SDF3 and its extent.
func wrap(s sdf.SDF3, box geom.Extent) *sdfxSolid {
	return &sdfxSolid{s: s, box: box}
}

func vec(v geom.Vector3) v3.Vec { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func fromVec(v v3.Vec) geom.Vector3 { return geom.Vec(v.X, v.Y, v.Z) }

func centredBox(x, y, z float64) geom.Extent {
	return geom.CentredExtent(geom.Vector3{}, geom.Vec(x, y, z))
}

// Box creates a box with the given full edge lengths centred on the origin.
func (k *SdfxKernel) Box(size geom.Vector3) (kernel.Solid, error) {
	s, err := sdf.Box3D(vec(size), 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box %v: %w", size, err)
	}
	return wrap(s, centredBox(size.X, size.Y, size.Z)), nil
}

// Sphere creates a ball of the given radius.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere r=%g: %w", radius, err)
	}
	d := 2 * radius
	return wrap(s, centredBox(d, d, d)), nil
}

// Cylinder creates a cylinder with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder h=%g r=%g: %w", height, radius, err)
	}
	return wrap(s, centredBox(2*radius, 2*radius, height)), nil
}

// Cone creates a truncated cone with radius bottom at z=-height/2 and top
// at z=+height/2.
func (k *SdfxKernel) Cone(height, bottom, top float64) (kernel.Solid, error) {
	s, err := sdf.Cone3D(height, bottom, top, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cone h=%g r0=%g r1=%g: %w", height, bottom, top, err)
	}
	r := math.Max(bottom, top)
	return wrap(s, centredBox(2*r, 2*r, height)), nil
}

// EllipticalTube stretches a cylinder of the smaller semi-axis. Scale
// factors are at least one so the distance bound is preserved.
func (k *SdfxKernel) EllipticalTube(a, b, height float64) (kernel.Solid, error) {
	m := math.Min(a, b)
	s, err := sdf.Cylinder3D(height, m, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: elliptical tube a=%g b=%g h=%g: %w", a, b, height, err)
	}
	s = sdf.Transform3D(s, sdf.Scale3d(v3.Vec{X: a / m, Y: b / m, Z: 1}))
	return wrap(s, centredBox(2*a, 2*b, height)), nil
}

// Ellipsoid stretches a sphere of the smallest semi-axis.
func (k *SdfxKernel) Ellipsoid(a, b, c float64) (kernel.Solid, error) {
	m := math.Min(a, math.Min(b, c))
	s, err := sdf.Sphere3D(m)
	if err != nil {
		return nil, fmt.Errorf("sdfx: ellipsoid %g %g %g: %w", a, b, c, err)
	}
	s = sdf.Transform3D(s, sdf.Scale3d(v3.Vec{X: a / m, Y: b / m, Z: c / m}))
	return wrap(s, centredBox(2*a, 2*b, 2*c)), nil
}

// Polyhedron intersects the inner half-spaces of planes within bounds.
func (k *SdfxKernel) Polyhedron(planes []geom.Plane, bounds geom.Extent) (kernel.Solid, error) {
	if len(planes) < 4 {
		return nil, fmt.Errorf("sdfx: polyhedron needs at least 4 planes, got %d", len(planes))
	}
	return wrap(&polyhedronSDF{planes: planes, bounds: bounds}, bounds), nil
}

// Quadric creates the clipped implicit quadric.
func (k *SdfxKernel) Quadric(q solid.Quadric) (kernel.Solid, error) {
	return wrap(&quadricSDF{q: q}, q.Bounds), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	switch {
	case sa.empty:
		return sb
	case sb.empty:
		return sa
	}
	return wrap(sdf.Union3D(sa.s, sb.s), sa.box.Union(sb.box))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	if sa.empty || sb.empty || !sa.box.Overlaps(sb.box) {
		return sa
	}
	return wrap(sdf.Difference3D(sa.s, sb.s), sa.box)
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := unwrap(a), unwrap(b)
	box, ok := sa.box.Intersect(sb.box)
	if sa.empty || sb.empty || !ok {
		return &sdfxSolid{s: sa.s, box: sa.box, empty: true}
	}
	return wrap(sdf.Intersect3D(sa.s, sb.s), box)
}

// Transform applies a rototranslation. The rotation is decomposed into
// ZYX Euler angles, matching the order of sdf.RotateZ/Y/X.
func (k *SdfxKernel) Transform(s kernel.Solid, t geom.Transform) kernel.Solid {
	ss := unwrap(s)
	x, y, z := t.Rotation.EulerAngles()
	m := sdf.Translate3d(vec(t.Translation)).
		Mul(sdf.RotateZ(z)).
		Mul(sdf.RotateY(y)).
		Mul(sdf.RotateX(x))
	return &sdfxSolid{s: sdf.Transform3D(ss.s, m), box: ss.box.Transformed(t), empty: ss.empty}
}

// Contains reports whether p lies inside or on the solid.
func (k *SdfxKernel) Contains(s kernel.Solid, p geom.Vector3) bool {
	ss := unwrap(s)
	if ss.empty || !ss.box.ContainsPoint(p) {
		return false
	}
	return ss.s.Evaluate(vec(p)) <= 0
}

// IsNull reports whether the solid encloses no volume.
func (k *SdfxKernel) IsNull(s kernel.Solid) (bool, error) {
	ss := unwrap(s)
	if ss.empty {
		return true, nil
	}
	found, err := k.findInterior(ss)
	if err != nil {
		return false, err
	}
	return !found, nil
}

// Volume estimates the enclosed volume.
func (k *SdfxKernel) Volume(s kernel.Solid) (float64, error) {
	ss := unwrap(s)
	if ss.empty {
		return 0, nil
	}
	return k.volume(ss), nil
}

// Bounds returns a tight bounding box, within one search cell.
func (k *SdfxKernel) Bounds(s kernel.Solid) (geom.Extent, bool, error) {
	null, err := k.IsNull(s)
	if err != nil || null {
		return geom.Extent{}, false, err
	}
	e, ok := k.tightBounds(unwrap(s))
	return e, ok, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	bounds, ok, err := k.Bounds(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &kernel.Mesh{}, nil
	}
	sdf3 := &boundedSDF{SDF3: unwrap(s).s, bounds: bounds.Enlarged(bounds.MaxSize() * 0.02)}

	renderer := render.NewMarchingCubesUniform(k.meshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
