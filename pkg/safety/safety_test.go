package safety

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel/sdfx"
	"github.com/chazu/zonecsg/pkg/registry"
)

type fataler interface {
	Fatalf(format string, args ...any)
}

func sphere(t fataler, b *registry.Builder, name string, r float64) registry.BodyID {
	bd, err := body.New(name, body.KindSPH, body.Sphere{Radius: r})
	if err != nil {
		t.Fatalf("sphere %s: %v", name, err)
	}
	return b.AddBody(bd)
}

func bodyNames(reg *registry.Registry, z registry.Zone) []string {
	var out []string
	z.Walk(func(o registry.Operand, _ int) {
		if !o.IsZone() {
			out = append(out, reg.BodyName(o.Body))
		}
	})
	return out
}

func TestExpandRenamesByBias(t *testing.T) {
	b := registry.NewBuilder()
	a := sphere(t, b, "a", 8)
	bb := sphere(t, b, "b", 6)
	c := sphere(t, b, "c", 4)
	d := sphere(t, b, "d", 2)
	sphere(t, b, "unused", 1)
	b.AddRegion(registry.Region{Name: "R", Material: "IRON", Zones: []registry.Zone{
		registry.NewZone(registry.Plus(a), registry.MinusZone(registry.NewZone(
			registry.Plus(bb), registry.MinusZone(registry.NewZone(registry.Plus(c), registry.Minus(d)))))),
	}})
	reg, err := b.Build()
	require.NoError(t, err)

	out, err := Expand(reg, 0.01)
	require.NoError(t, err)

	r, ok := out.Region("R")
	require.True(t, ok)
	want := []string{"a_s", "b_e", "c_s", "d_e"}
	if diff := cmp.Diff(want, bodyNames(out, r.Zones[0])); diff != "" {
		t.Errorf("variant names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, out.BodyCount(), "only referenced variants are registered")

	// The input registry is untouched.
	assert.Equal(t, 5, reg.BodyCount())
	orig, _ := reg.Region("R")
	assert.Equal(t, []string{"a", "b", "c", "d"}, bodyNames(reg, orig.Zones[0]))
	assert.Equal(t, 8.0, reg.Body(a).Data.(body.Sphere).Radius)
}

func TestExpandOffsetsVariants(t *testing.T) {
	b := registry.NewBuilder()
	a := sphere(t, b, "a", 5)
	bb := sphere(t, b, "b", 2)
	b.AddRegion(registry.Region{Name: "R", Material: "IRON", Zones: []registry.Zone{
		registry.NewZone(registry.Plus(a), registry.Minus(bb)),
	}})
	reg, err := b.Build()
	require.NoError(t, err)

	out, err := Expand(reg, 0.1)
	require.NoError(t, err)
	s := out.Body(out.MustLookup("a_s")).Data.(body.Sphere)
	e := out.Body(out.MustLookup("b_e")).Data.(body.Sphere)
	assert.InDelta(t, 4.9, s.Radius, 1e-12)
	assert.InDelta(t, 2.1, e.Radius, 1e-12)
}

func TestExpandSharedBodyGetsBothVariants(t *testing.T) {
	b := registry.NewBuilder()
	outer := sphere(t, b, "outer", 10)
	inner := sphere(t, b, "inner", 5)
	b.AddRegion(registry.Region{Name: "shell", Material: "IRON", Zones: []registry.Zone{
		registry.NewZone(registry.Plus(outer), registry.Minus(inner)),
	}})
	b.AddRegion(registry.Region{Name: "core", Material: "LEAD", Zones: []registry.Zone{
		registry.NewZone(registry.Plus(inner)),
	}})
	b.AddRegion(registry.Region{Name: "core2", Material: "LEAD", Zones: []registry.Zone{
		registry.NewZone(registry.Plus(inner)),
	}})
	reg, err := b.Build()
	require.NoError(t, err)

	out, err := Expand(reg, DefaultEpsilon)
	require.NoError(t, err)

	var names []string
	for _, bd := range out.Bodies() {
		names = append(names, bd.Name)
	}
	assert.ElementsMatch(t, []string{"outer_s", "inner_e", "inner_s"}, names)
	assert.Equal(t, []string{"core", "core2"}, out.RegionsUsing(out.MustLookup("inner_s")))
	assert.Equal(t, []string{"shell"}, out.RegionsUsing(out.MustLookup("inner_e")))
}

func TestExpandCarriesLatticesAndMaterials(t *testing.T) {
	b := registry.NewBuilder()
	a := sphere(t, b, "a", 1)
	b.DeclareMaterial("STEEL316")
	b.AddRegion(registry.Region{Name: "cell", Material: "STEEL316", Zones: []registry.Zone{registry.NewZone(registry.Plus(a))}})
	b.AddLattice(registry.LatticeCell{Name: "L1", Prototype: "cell", Transform: geom.Translation(geom.Vec(5, 0, 0))})
	reg, err := b.Build()
	require.NoError(t, err)

	out, err := Expand(reg, DefaultEpsilon)
	require.NoError(t, err)
	assert.True(t, out.HasMaterial("STEEL316"))
	l, ok := out.Lattice("L1")
	require.True(t, ok)
	assert.Equal(t, "cell", l.Prototype)
	assert.Equal(t, geom.Vec(5, 0, 0), l.Transform.Translation)
}

func TestExpandRejectsBadEpsilon(t *testing.T) {
	reg, err := registry.NewBuilder().Build()
	require.NoError(t, err)
	for _, eps := range []float64{0, -1e-6, math.NaN(), math.Inf(1)} {
		_, err := Expand(reg, eps)
		assert.ErrorIs(t, err, ErrEpsilon, "eps=%g", eps)
	}
}

func TestExpandReportsCollapsedBody(t *testing.T) {
	b := registry.NewBuilder()
	a := sphere(t, b, "tiny", 0.5)
	b.AddRegion(registry.Region{Name: "R", Material: "IRON", Zones: []registry.Zone{registry.NewZone(registry.Plus(a))}})
	reg, err := b.Build()
	require.NoError(t, err)

	_, err = Expand(reg, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, body.ErrGeometryConstraint)
	var gce *body.GeometryConstraintError
	require.ErrorAs(t, err, &gce)
	assert.Equal(t, "tiny", gce.Body)
	assert.Contains(t, err.Error(), `region "R"`)
}

func TestVariant(t *testing.T) {
	assert.Equal(t, "a_s", Variant("a", registry.Include, 0))
	assert.Equal(t, "a_e", Variant("a", registry.Exclude, 0))
	assert.Equal(t, "a_e", Variant("a", registry.Include, 1))
	assert.Equal(t, "a_s", Variant("a", registry.Exclude, 3))
}

// Concentric spheres nested three sub-zones deep:
//
//	+A -(+B -(+C -D))
//
// The adjusted zone must lie inside the original and cover everything of
// the original further than two epsilons from its boundary.
func TestNestedParityNeitherGapsNorOverlaps(t *testing.T) {
	const eps = 0.05
	k := sdfx.New(sdfx.WithNullCells(12))
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		rd := rapid.Float64Range(0.5, 1).Draw(rt, "rd")
		rc := rapid.Float64Range(1.5, 3).Draw(rt, "rc")
		rb := rapid.Float64Range(3.5, 5.5).Draw(rt, "rb")
		ra := rapid.Float64Range(6, 10).Draw(rt, "ra")

		b := registry.NewBuilder()
		a := sphere(rt, b, "A", ra)
		bb := sphere(rt, b, "B", rb)
		c := sphere(rt, b, "C", rc)
		d := sphere(rt, b, "D", rd)
		b.AddRegion(registry.Region{Name: "R", Material: "IRON", Zones: []registry.Zone{
			registry.NewZone(registry.Plus(a), registry.MinusZone(registry.NewZone(
				registry.Plus(bb), registry.MinusZone(registry.NewZone(registry.Plus(c), registry.Minus(d)))))),
		}})
		reg, err := b.Build()
		if err != nil {
			rt.Fatalf("build: %v", err)
		}
		adjusted, err := Expand(reg, eps)
		if err != nil {
			rt.Fatalf("expand: %v", err)
		}

		ev := csg.NewEvaluator(k)
		orig, err := ev.Zone(ctx, reg, "R", 0, csg.DefaultOptions())
		if err != nil {
			rt.Fatalf("original zone: %v", err)
		}
		adj, err := ev.Zone(ctx, adjusted, "R", 0, csg.DefaultOptions())
		if err != nil {
			rt.Fatalf("adjusted zone: %v", err)
		}

		radii := []float64{ra, rb, rc, rd}
		inside := func(r float64) bool {
			return r < ra && !(r < rb && !(r < rc && !(r < rd)))
		}
		dir, _ := geom.Vec(1, 1, 1).Normalize()
		for r := 0.0; r < ra+1; r += 0.01 {
			dist := math.Inf(1)
			for _, ri := range radii {
				dist = math.Min(dist, math.Abs(r-ri))
			}
			p := dir.Scale(r)
			inAdj := k.Contains(adj, p)
			if inAdj && !inside(r) && dist > 1e-9 {
				rt.Fatalf("r=%.3f: adjusted zone leaks outside the original", r)
			}
			if inside(r) && dist > 2*eps && !inAdj {
				rt.Fatalf("r=%.3f: adjusted zone leaves a gap", r)
			}
			if dist > 1e-9 && k.Contains(orig, p) != inside(r) {
				rt.Fatalf("r=%.3f: original zone misclassified", r)
			}
		}
	})
}
