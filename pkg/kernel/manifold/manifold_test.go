//go:build manifold

package manifold

import (
	"math"
	"testing"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/solid"
)

func mustNew(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func mustSolid(t *testing.T, s kernel.Solid, err error) kernel.Solid {
	t.Helper()
	if err != nil {
		t.Fatalf("primitive error = %v", err)
	}
	return s
}

func TestBox(t *testing.T) {
	k := mustNew(t)
	s := mustSolid(t, k.Box(geom.Vec(10, 20, 30)))
	want := geom.MustExtent(geom.Vec(-5, -10, -15), geom.Vec(5, 10, 15))
	if got := s.BoundingBox(); !got.ApproxEqual(want, 1e-6) {
		t.Errorf("BoundingBox() = %v, want %v", got, want)
	}
	v, err := k.Volume(s)
	if err != nil || math.Abs(v-6000) > 1e-6 {
		t.Errorf("Volume() = %f, %v; want 6000", v, err)
	}
}

func TestCylinder(t *testing.T) {
	k := mustNew(t)
	s := mustSolid(t, k.Cylinder(20, 5, 32))
	bb := s.BoundingBox()
	if math.Abs(bb.Lower.Z+10) > 0.01 || math.Abs(bb.Upper.Z-10) > 0.01 {
		t.Errorf("Cylinder Z bounds = %v, want ~[-10, 10]", bb)
	}
	// X/Y bounds should be within the radius (polygon inscribed in circle).
	if bb.Lower.X > -4.5 || bb.Upper.Y < 4.5 {
		t.Errorf("Cylinder XY bounds = %v, want about +-5", bb)
	}
}

func TestDifferenceAndNull(t *testing.T) {
	k := mustNew(t)
	box := mustSolid(t, k.Box(geom.Vec(10, 10, 10)))
	hole := mustSolid(t, k.Cylinder(20, 3, 32))
	result := k.Difference(box, hole)

	want := geom.MustExtent(geom.Vec(-5, -5, -5), geom.Vec(5, 5, 5))
	if got := result.BoundingBox(); !got.ApproxEqual(want, 1e-6) {
		t.Errorf("Difference bounds = %v, want %v", got, want)
	}
	if null, _ := k.IsNull(k.Difference(box, box)); !null {
		t.Error("box minus itself should be null")
	}
	if k.Contains(result, geom.Vec(0, 0, 0)) {
		t.Error("hole axis should not be inside")
	}
	if !k.Contains(result, geom.Vec(4, 4, 0)) {
		t.Error("corner region should be inside")
	}
}

func TestTransform(t *testing.T) {
	k := mustNew(t)
	box := mustSolid(t, k.Box(geom.Vec(10, 10, 10)))
	moved := k.Transform(box, geom.Translation(geom.Vec(100, 200, 300)))
	want := geom.MustExtent(geom.Vec(95, 195, 295), geom.Vec(105, 205, 305))
	if got := moved.BoundingBox(); !got.ApproxEqual(want, 1e-6) {
		t.Errorf("Transform bounds = %v, want %v", got, want)
	}
}

func TestPolyhedron(t *testing.T) {
	k := mustNew(t)
	cube, err := solid.NewPolyhedron(
		[]geom.Vector3{
			geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(1, 1, 0), geom.Vec(0, 1, 0),
			geom.Vec(0, 0, 1), geom.Vec(1, 0, 1), geom.Vec(1, 1, 1), geom.Vec(0, 1, 1),
		},
		[][]int{{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4}, {2, 3, 7, 6}, {1, 2, 6, 5}, {0, 4, 7, 3}},
	)
	if err != nil {
		t.Fatal(err)
	}
	s, err := kernel.Realise(k, solid.Placed{Shape: cube, Transform: geom.Identity()})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := k.Volume(s)
	if math.Abs(v-1) > 1e-6 {
		t.Errorf("polyhedron volume = %f, want 1", v)
	}
}

func TestToMesh(t *testing.T) {
	k := mustNew(t)
	box := mustSolid(t, k.Box(geom.Vec(10, 10, 10)))
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if mesh.TriangleCount() < 12 {
		t.Errorf("ToMesh() triangle count = %d, want >= 12", mesh.TriangleCount())
	}
	if len(mesh.Normals) != len(mesh.Vertices) {
		t.Errorf("ToMesh() normals length = %d, vertices length = %d, want equal",
			len(mesh.Normals), len(mesh.Vertices))
	}
}
