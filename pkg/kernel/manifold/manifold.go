//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// guaranteed-manifold mesh boolean operations, which makes it the natural
// backend when converted regions feed a boolean-mesh exporter.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/solid"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// probeSize is the edge of the cube used for point containment queries.
const probeSize = 1e-6

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() geom.Extent {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	return geom.Extent{
		Lower: geom.Vec(
			float64(C.manifold_box_min_x(bbox)),
			float64(C.manifold_box_min_y(bbox)),
			float64(C.manifold_box_min_z(bbox)),
		),
		Upper: geom.Vec(
			float64(C.manifold_box_max_x(bbox)),
			float64(C.manifold_box_max_y(bbox)),
			float64(C.manifold_box_max_z(bbox)),
		),
	}
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func unwrap(s kernel.Solid) *manifoldSolid {
	return s.(*manifoldSolid)
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel. Returns an error if the Manifold
// C library cannot be initialized.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Name returns "manifold".
func (k *ManifoldKernel) Name() string { return "manifold" }

func segments(radius float64) C.int {
	switch {
	case radius < 1:
		return 16
	case radius < 100:
		return 64
	}
	return 128
}

// Box creates an axis-aligned box centred at the origin.
func (k *ManifoldKernel) Box(size geom.Vector3) (kernel.Solid, error) {
	if !(size.X > 0 && size.Y > 0 && size.Z > 0) {
		return nil, fmt.Errorf("manifold: box size %v must be positive", size)
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cube(alloc,
		C.double(size.X), C.double(size.Y), C.double(size.Z),
		C.int(1), // center=true
	)
	return newSolid(ptr), nil
}

// Sphere creates a ball centred at the origin.
func (k *ManifoldKernel) Sphere(radius float64) (kernel.Solid, error) {
	if !(radius > 0) {
		return nil, fmt.Errorf("manifold: sphere radius %g must be positive", radius)
	}
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_sphere(alloc, C.double(radius), segments(radius))), nil
}

// Cylinder creates a cylinder along the Z axis with the given height,
// radius, and number of circular segments, centred at the origin.
func (k *ManifoldKernel) Cylinder(height, radius float64, segs int) (kernel.Solid, error) {
	return k.frustum(height, radius, radius, C.int(segs))
}

// Cone creates a truncated cone along Z.
func (k *ManifoldKernel) Cone(height, bottom, top float64) (kernel.Solid, error) {
	return k.frustum(height, bottom, top, segments(math.Max(bottom, top)))
}

func (k *ManifoldKernel) frustum(height, low, high float64, segs C.int) (kernel.Solid, error) {
	if !(height > 0) || low < 0 || high < 0 || (low == 0 && high == 0) {
		return nil, fmt.Errorf("manifold: invalid frustum h=%g r0=%g r1=%g", height, low, high)
	}
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_cylinder(alloc,
		C.double(height),
		C.double(low),
		C.double(high),
		segs,
		C.int(1), // center=true
	)
	return newSolid(ptr), nil
}

func (k *ManifoldKernel) scale(s kernel.Solid, x, y, z float64) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_scale(alloc, unwrap(s).ptr, C.double(x), C.double(y), C.double(z)))
}

// EllipticalTube scales a unit-radius cylinder.
func (k *ManifoldKernel) EllipticalTube(a, b, height float64) (kernel.Solid, error) {
	c, err := k.frustum(height, 1, 1, segments(math.Max(a, b)))
	if err != nil {
		return nil, err
	}
	return k.scale(c, a, b, 1), nil
}

// Ellipsoid scales a unit sphere.
func (k *ManifoldKernel) Ellipsoid(a, b, c float64) (kernel.Solid, error) {
	alloc := C.manifold_alloc_manifold()
	unit := newSolid(C.manifold_sphere(alloc, C.double(1), segments(math.Max(a, math.Max(b, c)))))
	return k.scale(unit, a, b, c), nil
}

// Polyhedron trims the bounds box by each face plane.
func (k *ManifoldKernel) Polyhedron(planes []geom.Plane, bounds geom.Extent) (kernel.Solid, error) {
	b, err := k.Box(bounds.Size())
	if err != nil {
		return nil, err
	}
	cur := unwrap(k.Transform(b, geom.Translation(bounds.Centre())))
	for _, pl := range planes {
		// TrimByPlane keeps the side the normal points to.
		alloc := C.manifold_alloc_manifold()
		n := pl.Normal.Neg()
		cur = newSolid(C.manifold_trim_by_plane(alloc, cur.ptr,
			C.double(n.X), C.double(n.Y), C.double(n.Z), C.double(-pl.Offset)))
	}
	return cur, nil
}

// Quadric surfaces have no mesh representation in Manifold.
func (k *ManifoldKernel) Quadric(solid.Quadric) (kernel.Solid, error) {
	return nil, kernel.ErrUnsupported
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_union(alloc, unwrap(a).ptr, unwrap(b).ptr))
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_difference(alloc, unwrap(a).ptr, unwrap(b).ptr))
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	alloc := C.manifold_alloc_manifold()
	return newSolid(C.manifold_intersection(alloc, unwrap(a).ptr, unwrap(b).ptr))
}

// Transform applies the 3x4 affine matrix, passed column by column.
func (k *ManifoldKernel) Transform(s kernel.Solid, t geom.Transform) kernel.Solid {
	r := t.Rotation
	tr := t.Translation
	alloc := C.manifold_alloc_manifold()
	ptr := C.manifold_transform(alloc, unwrap(s).ptr,
		C.double(r[0][0]), C.double(r[1][0]), C.double(r[2][0]),
		C.double(r[0][1]), C.double(r[1][1]), C.double(r[2][1]),
		C.double(r[0][2]), C.double(r[1][2]), C.double(r[2][2]),
		C.double(tr.X), C.double(tr.Y), C.double(tr.Z),
	)
	return newSolid(ptr)
}

// IsNull reports whether the solid has no volume.
func (k *ManifoldKernel) IsNull(s kernel.Solid) (bool, error) {
	ms := unwrap(s)
	if C.manifold_is_empty(ms.ptr) != 0 {
		return true, nil
	}
	return float64(C.manifold_volume(ms.ptr)) <= 0, nil
}

// Volume returns the exact mesh volume.
func (k *ManifoldKernel) Volume(s kernel.Solid) (float64, error) {
	return float64(C.manifold_volume(unwrap(s).ptr)), nil
}

// Bounds returns the mesh bounding box, which is already tight.
func (k *ManifoldKernel) Bounds(s kernel.Solid) (geom.Extent, bool, error) {
	null, err := k.IsNull(s)
	if err != nil || null {
		return geom.Extent{}, false, err
	}
	return s.BoundingBox(), true, nil
}

// Contains intersects the solid with a tiny probe cube at p.
func (k *ManifoldKernel) Contains(s kernel.Solid, p geom.Vector3) bool {
	probe, err := k.Box(geom.Vec(probeSize, probeSize, probeSize))
	if err != nil {
		return false
	}
	hit := k.Intersection(s, k.Transform(probe, geom.Translation(p)))
	null, _ := k.IsNull(hit)
	return !null
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. Vertex positions and normals are interleaved in MeshGL; this
// method separates them into the kernel.Mesh flat-array layout.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms := unwrap(s)

	meshAlloc := C.manifold_alloc_meshgl()
	meshGL := C.manifold_get_meshgl(meshAlloc, ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))

	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}

	// The first 3 vertex properties are the position; normals, when
	// present, follow at 3..5.
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	vertices := make([]float32, numVert*3)
	var normals []float32
	hasNormals := numProp >= 6
	if hasNormals {
		normals = make([]float32, numVert*3)
	}

	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], propData[base:base+3])
		if hasNormals {
			copy(normals[i*3:i*3+3], propData[base+3:base+6])
		}
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
	if !hasNormals {
		mesh.ComputeNormals()
	}

	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}

	return mesh, nil
}
