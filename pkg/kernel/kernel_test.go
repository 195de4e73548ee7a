package kernel

import (
	"math"
	"testing"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/solid"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshVolumeTetrahedron(t *testing.T) {
	// Unit right tetrahedron, outward winding.
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
		Indices:  []uint32{0, 2, 1, 0, 1, 3, 0, 3, 2, 1, 2, 3},
	}
	if got := m.Volume(); math.Abs(got-1.0/6.0) > 1e-6 {
		t.Errorf("Volume() = %f, want 1/6", got)
	}
	e, ok := m.Extent()
	if !ok {
		t.Fatal("Extent() not ok")
	}
	if e.Upper != geom.Vec(1, 1, 1) || e.Lower != geom.Vec(0, 0, 0) {
		t.Errorf("Extent() = %v", e)
	}
}

func TestMeshComputeNormals(t *testing.T) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
	}
	m.ComputeNormals()
	if len(m.Normals) != 9 {
		t.Fatalf("len(Normals) = %d, want 9", len(m.Normals))
	}
	for i := 0; i < 3; i++ {
		if m.Normals[i*3+2] != 1 {
			t.Errorf("normal %d = %v, want +Z", i, m.Normals[i*3:i*3+3])
		}
	}
}

// --- Realise dispatch with a recording stub kernel ---

type stubSolid struct {
	kind string
	box  geom.Extent
}

func (s *stubSolid) BoundingBox() geom.Extent { return s.box }

// stubKernel records which primitive each shape was realised with.
type stubKernel struct {
	transforms int
}

func centred(size geom.Vector3) geom.Extent { return geom.CentredExtent(geom.Vector3{}, size) }

func (k *stubKernel) Name() string { return "stub" }
func (k *stubKernel) Box(size geom.Vector3) (Solid, error) {
	return &stubSolid{"box", centred(size)}, nil
}
func (k *stubKernel) Sphere(r float64) (Solid, error) {
	return &stubSolid{"sphere", centred(geom.Vec(2*r, 2*r, 2*r))}, nil
}
func (k *stubKernel) Cylinder(h, r float64, _ int) (Solid, error) {
	return &stubSolid{"cylinder", centred(geom.Vec(2*r, 2*r, h))}, nil
}
func (k *stubKernel) Cone(h, b, tp float64) (Solid, error) {
	r := math.Max(b, tp)
	return &stubSolid{"cone", centred(geom.Vec(2*r, 2*r, h))}, nil
}
func (k *stubKernel) EllipticalTube(a, b, h float64) (Solid, error) {
	return &stubSolid{"etube", centred(geom.Vec(2*a, 2*b, h))}, nil
}
func (k *stubKernel) Ellipsoid(a, b, c float64) (Solid, error) {
	return &stubSolid{"ellipsoid", centred(geom.Vec(2*a, 2*b, 2*c))}, nil
}
func (k *stubKernel) Polyhedron(_ []geom.Plane, bounds geom.Extent) (Solid, error) {
	return &stubSolid{"polyhedron", bounds}, nil
}
func (k *stubKernel) Quadric(q solid.Quadric) (Solid, error) {
	return nil, ErrUnsupported
}
func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }
func (k *stubKernel) Transform(s Solid, t geom.Transform) Solid {
	k.transforms++
	ss := s.(*stubSolid)
	return &stubSolid{ss.kind, ss.box.Transformed(t)}
}
func (k *stubKernel) IsNull(Solid) (bool, error)        { return false, nil }
func (k *stubKernel) Volume(Solid) (float64, error)     { return 0, nil }
func (k *stubKernel) Contains(Solid, geom.Vector3) bool { return false }
func (k *stubKernel) Bounds(s Solid) (geom.Extent, bool, error) {
	return s.BoundingBox(), true, nil
}
func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) { return &Mesh{}, nil }

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestRealiseDispatch(t *testing.T) {
	tetra, err := solid.NewPolyhedron(
		[]geom.Vector3{geom.Vec(0, 0, 0), geom.Vec(1, 0, 0), geom.Vec(0, 1, 0), geom.Vec(0, 0, 1)},
		[][]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		shape solid.Shape
		want  string
	}{
		{solid.Box{Size: geom.Vec(1, 2, 3)}, "box"},
		{solid.Sphere{Radius: 1}, "sphere"},
		{solid.Tube{Radius: 1, Height: 2}, "cylinder"},
		{solid.Cone{Bottom: 1, Top: 0.5, Height: 2}, "cone"},
		{solid.EllipticalTube{A: 1, B: 2, Height: 3}, "etube"},
		{solid.Ellipsoid{A: 1, B: 2, C: 3}, "ellipsoid"},
		{tetra, "polyhedron"},
	}
	for _, tt := range tests {
		k := &stubKernel{}
		s, err := Realise(k, solid.Placed{Shape: tt.shape, Transform: geom.Identity()})
		if err != nil {
			t.Fatalf("Realise(%T) error = %v", tt.shape, err)
		}
		if got := s.(*stubSolid).kind; got != tt.want {
			t.Errorf("Realise(%T) = %s, want %s", tt.shape, got, tt.want)
		}
		if k.transforms != 0 {
			t.Errorf("identity placement applied %d transforms", k.transforms)
		}
	}
}

func TestRealiseAppliesTransform(t *testing.T) {
	k := &stubKernel{}
	s, err := Realise(k, solid.Placed{
		Shape:     solid.Box{Size: geom.Vec(10, 10, 10)},
		Transform: geom.Translation(geom.Vec(50, 0, 0)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if k.transforms != 1 {
		t.Fatalf("transforms = %d, want 1", k.transforms)
	}
	want := geom.MustExtent(geom.Vec(45, -5, -5), geom.Vec(55, 5, 5))
	if !s.BoundingBox().ApproxEqual(want, 1e-12) {
		t.Errorf("BoundingBox() = %v, want %v", s.BoundingBox(), want)
	}
}

func TestRealiseUnsupported(t *testing.T) {
	_, err := Realise(&stubKernel{}, solid.Placed{
		Shape:     solid.Quadric{Bounds: geom.MustExtent(geom.Vec(0, 0, 0), geom.Vec(1, 1, 1))},
		Transform: geom.Identity(),
	})
	if err != ErrUnsupported {
		t.Errorf("Realise(quadric) error = %v, want ErrUnsupported", err)
	}
}
