package tessellate_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel"
	"github.com/chazu/zonecsg/pkg/kernel/sdfx"
	"github.com/chazu/zonecsg/pkg/tessellate"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New()
}

// makeBox returns a placement of a box centred on the origin.
func makeBox(t *testing.T, k kernel.Kernel, region string, zone int, x, y, z float64, tr geom.Transform) csg.Placement {
	t.Helper()
	s, err := k.Box(geom.Vec(x, y, z))
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	return csg.Placement{
		Solid:     s,
		Transform: tr,
		Material:  "IRON",
		Region:    region,
		ZoneIndex: zone,
	}
}

func TestSingleBox(t *testing.T) {
	k := newKernel()
	p := makeBox(t, k, "shelf", 0, 10, 10, 10, geom.Identity())

	meshes, err := tessellate.Tessellate([]csg.Placement{p}, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}
	if m.PartName != "shelf#0" {
		t.Errorf("expected PartName %q, got %q", "shelf#0", m.PartName)
	}
	if v := m.Volume(); math.Abs(v-1000)/1000 > 0.05 {
		t.Errorf("volume = %.1f, expected near 1000", v)
	}
}

func TestPlacementWithTransform(t *testing.T) {
	k := newKernel()
	p := makeBox(t, k, "shelf", 2, 10, 20, 4, geom.Translation(geom.Vec(250, 125, 55)))

	meshes, err := tessellate.Tessellate([]csg.Placement{p}, k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.PartName != "shelf#2" {
		t.Errorf("expected PartName %q, got %q", "shelf#2", m.PartName)
	}

	e, ok := m.Extent()
	if !ok {
		t.Fatal("mesh has no extent")
	}
	c := e.Lower.Add(e.Upper).Scale(0.5)
	if math.Abs(c.X-250) > 1 {
		t.Errorf("centroid X = %.1f, expected near 250", c.X)
	}
	if math.Abs(c.Y-125) > 1 {
		t.Errorf("centroid Y = %.1f, expected near 125", c.Y)
	}
	if math.Abs(c.Z-55) > 1 {
		t.Errorf("centroid Z = %.1f, expected near 55", c.Z)
	}
}

func TestSeveralPlacementsKeepOrder(t *testing.T) {
	k := newKernel()
	placements := []csg.Placement{
		makeBox(t, k, "A", 0, 4, 4, 4, geom.Identity()),
		makeBox(t, k, "A", 1, 4, 4, 4, geom.Translation(geom.Vec(10, 0, 0))),
		makeBox(t, k, "B", 0, 2, 2, 2, geom.Translation(geom.Vec(0, 10, 0))),
	}

	meshes, err := tessellate.Parallel(context.Background(), placements, k, fanout.Policy{Workers: 3, FailFast: true})
	if err != nil {
		t.Fatalf("Parallel failed: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(meshes))
	}
	for i, want := range []string{"A#0", "A#1", "B#0"} {
		if meshes[i].PartName != want {
			t.Errorf("mesh %d PartName = %q, want %q", i, meshes[i].PartName, want)
		}
		if meshes[i].IsEmpty() {
			t.Errorf("mesh %q should not be empty", want)
		}
	}
}

func TestEmptyPlacements(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}
}

func TestMissingSolid(t *testing.T) {
	_, err := tessellate.Tessellate([]csg.Placement{{Region: "R", ZoneIndex: 3}}, newKernel())
	if err == nil {
		t.Fatal("expected an error for a placement without a solid")
	}
	if !strings.Contains(err.Error(), "R#3") {
		t.Errorf("error should name the placement, got: %v", err)
	}
}

var errMesh = errors.New("mesher exploded")

// failingKernel wraps a real kernel but refuses to mesh.
type failingKernel struct {
	kernel.Kernel
}

func (failingKernel) ToMesh(kernel.Solid) (*kernel.Mesh, error) { return nil, errMesh }

func TestToMeshErrorPropagates(t *testing.T) {
	k := failingKernel{newKernel()}
	p := makeBox(t, k, "R", 0, 1, 1, 1, geom.Identity())

	_, err := tessellate.Tessellate([]csg.Placement{p}, k)
	if !errors.Is(err, errMesh) {
		t.Fatalf("expected wrapped mesh error, got %v", err)
	}
	if !strings.Contains(err.Error(), "tessellate: ToMesh failed for R#0") {
		t.Errorf("unexpected message: %v", err)
	}
}
