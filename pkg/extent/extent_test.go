package extent

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/fanout"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/kernel/sdfx"
	"github.com/chazu/zonecsg/pkg/registry"
)

type fixture struct {
	t *testing.T
	b *registry.Builder
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, b: registry.NewBuilder()}
}

func (f *fixture) add(name string, kind body.Kind, data body.Params) registry.BodyID {
	f.t.Helper()
	bd, err := body.New(name, kind, data)
	require.NoError(f.t, err)
	return f.b.AddBody(bd)
}

func (f *fixture) rpp(name string, lo, hi geom.Vector3) registry.BodyID {
	return f.add(name, body.KindRPP, body.RPP{Min: lo, Max: hi})
}

func (f *fixture) region(name string, zones ...registry.Zone) {
	f.b.AddRegion(registry.Region{Name: name, Material: "IRON", Zones: zones})
}

func (f *fixture) build() *registry.Registry {
	f.t.Helper()
	reg, err := f.b.Build()
	require.NoError(f.t, err)
	return reg
}

func evaluator() *csg.Evaluator {
	return csg.NewEvaluator(sdfx.New(sdfx.WithNullCells(16)))
}

func TestInfiniteBodiesGetTightExtents(t *testing.T) {
	f := newFixture(t)
	tube := f.add("tube", body.KindZCC, body.AxisCylinder{Axis: body.AxisZ, Radius: 5})
	top := f.add("top", body.KindXYP, body.AxisPlane{Axis: body.AxisZ, Value: 10})
	bottom := f.add("bottom", body.KindXYP, body.AxisPlane{Axis: body.AxisZ, Value: 0})
	f.region("disc", registry.NewZone(registry.Plus(tube), registry.Plus(top), registry.Minus(bottom)))
	reg := f.build()
	ev := evaluator()

	res, err := Resolve(context.Background(), reg, ev)
	require.NoError(t, err)

	want := geom.MustExtent(geom.Vec(-5, -5, 0), geom.Vec(5, 5, 10))
	got, ok := res.RegionExtent("disc")
	require.True(t, ok)
	assert.True(t, got.Contains(want), "region extent %v does not contain %v", got, want)
	assert.Less(t, got.MaxSize(), 12.0, "region extent %v is not tight", got)

	for _, id := range []registry.BodyID{tube, top, bottom} {
		be, ok := res.BodyExtent(id)
		require.True(t, ok)
		assert.Equal(t, got, be, "body %s", reg.BodyName(id))
	}

	// Bounded with the resolved extents the zone keeps its shape and the
	// infinite bodies shrink from the default length.
	opts := res.Options("disc")
	p, err := ev.Placement(context.Background(), reg, "disc", 0, opts)
	require.NoError(t, err)
	for _, l := range p.Tree.Leaves() {
		assert.Less(t, l.Shape.Extent().MaxSize(), 100.0, "leaf %s", l.Body)
	}
	v, err := ev.Kernel().Volume(p.World(ev.Kernel()))
	require.NoError(t, err)
	assert.InEpsilon(t, math.Pi*25*10, v, 0.05)
}

func TestBodyExtentIsUnionOfRegions(t *testing.T) {
	f := newFixture(t)
	left := f.rpp("left", geom.Vec(0, 0, 0), geom.Vec(10, 10, 10))
	right := f.rpp("right", geom.Vec(20, 0, 0), geom.Vec(30, 10, 10))
	cut := f.add("cut", body.KindYZP, body.AxisPlane{Axis: body.AxisX, Value: 5})
	f.region("L", registry.NewZone(registry.Plus(left), registry.Plus(cut)))
	f.region("R", registry.NewZone(registry.Plus(right), registry.Minus(cut)))
	reg := f.build()

	res, err := Resolve(context.Background(), reg, evaluator())
	require.NoError(t, err)

	l, ok := res.RegionExtent("L")
	require.True(t, ok)
	r, ok := res.RegionExtent("R")
	require.True(t, ok)
	assert.True(t, l.Contains(geom.MustExtent(geom.Vec(0, 0, 0), geom.Vec(5, 10, 10))))
	assert.Less(t, l.Upper.X, 6.0)

	be, ok := res.BodyExtent(cut)
	require.True(t, ok)
	assert.True(t, be.Contains(l) && be.Contains(r), "cut extent %v", be)

	// The plane only reaches the left region.
	assert.False(t, res.Omitted("L", cut))
	assert.True(t, res.Omitted("R", cut))
	assert.True(t, res.Omittable("R", cut))
	assert.False(t, res.Omitted("R", right))
}

func TestIncludeContainingTheRestIsOmitted(t *testing.T) {
	f := newFixture(t)
	box := f.rpp("box", geom.Vec(0, 0, 0), geom.Vec(10, 10, 10))
	big := f.add("big", body.KindSPH, body.Sphere{Radius: 100})
	other := f.rpp("other", geom.Vec(40, 0, 0), geom.Vec(50, 10, 10))
	f.region("R", registry.NewZone(registry.Plus(big), registry.Plus(box)))
	// big also appears inside a sub-zone of S, so S cannot drop it.
	f.region("S",
		registry.NewZone(registry.Plus(big), registry.Plus(other)),
		registry.NewZone(registry.Plus(other), registry.PlusZone(registry.NewZone(registry.Plus(big)))))
	reg := f.build()

	res, err := Resolve(context.Background(), reg, evaluator())
	require.NoError(t, err)

	assert.True(t, res.Omitted("R", big))
	assert.False(t, res.Omitted("R", box))
	assert.False(t, res.Omitted("S", big))

	r, _ := reg.Region("R")
	n, err := csg.Describe(reg, r.Zones[0], res.Options("R"))
	require.NoError(t, err)
	assert.Equal(t, "box", n.String())
}

func TestOptionsOfUnknownRegion(t *testing.T) {
	reg := newFixture(t).build()
	res, err := Resolve(context.Background(), reg, evaluator(), WithBound(body.BoundOptions{Tolerance: 2, InfiniteLength: 1000}))
	require.NoError(t, err)
	opts := res.Options("nowhere")
	assert.Empty(t, opts.Omit)
	assert.Equal(t, 2.0, opts.Bound.Tolerance)
	_, ok := res.RegionExtent("nowhere")
	assert.False(t, ok)
}

func TestResolveReportsEmptyZones(t *testing.T) {
	f := newFixture(t)
	a := f.rpp("a", geom.Vec(0, 0, 0), geom.Vec(10, 10, 10))
	b := f.rpp("b", geom.Vec(20, 0, 0), geom.Vec(30, 10, 10))
	f.region("bad", registry.NewZone(registry.Plus(a), registry.Minus(a)))
	f.region("good", registry.NewZone(registry.Plus(b)))
	f.region("worse", registry.NewZone(registry.Plus(b), registry.Minus(b)))
	reg := f.build()

	_, err := Resolve(context.Background(), reg, evaluator(), WithPolicy(fanout.Policy{Workers: 2}))
	require.Error(t, err)
	assert.ErrorIs(t, err, csg.ErrNullSolid)
	assert.Contains(t, err.Error(), `region "bad"`)
	assert.Contains(t, err.Error(), `region "worse"`)
}
