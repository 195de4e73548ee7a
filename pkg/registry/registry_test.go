package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func rpp(t *testing.T, name string, lo, hi geom.Vector3) body.Body {
	t.Helper()
	b, err := body.New(name, body.KindRPP, body.RPP{Min: lo, Max: hi})
	require.NoError(t, err)
	return b
}

func sphere(t *testing.T, name string, r float64) body.Body {
	t.Helper()
	b, err := body.New(name, body.KindSPH, body.Sphere{Radius: r})
	require.NoError(t, err)
	return b
}

// buildShell returns a registry with a target shell (sphere minus sphere)
// inside a box filled with air.
func buildShell(t *testing.T) *Registry {
	t.Helper()
	b := NewBuilder()
	outer := b.AddBody(sphere(t, "outer", 10))
	inner := b.AddBody(sphere(t, "inner", 5))
	world := b.AddBody(rpp(t, "world", geom.Vec(-20, -20, -20), geom.Vec(20, 20, 20)))
	b.DeclareMaterial("AIR")
	b.AddRegion(Region{Name: "SHELL", Material: "IRON", Zones: []Zone{NewZone(Plus(outer), Minus(inner))}})
	b.AddRegion(Region{Name: "CORE", Material: "VACUUM", Zones: []Zone{NewZone(Plus(inner))}})
	b.AddRegion(Region{Name: "AIR", Material: "AIR", Zones: []Zone{NewZone(Plus(world), Minus(outer))}})
	r, err := b.Build()
	require.NoError(t, err)
	return r
}

func hasFinding(errs []ValidationError, sev ValidationSeverity, substr string) bool {
	for _, e := range errs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestBuildIndexes(t *testing.T) {
	r := buildShell(t)

	assert.Equal(t, 3, r.BodyCount())
	id, ok := r.Lookup("inner")
	require.True(t, ok)
	assert.Equal(t, "inner", r.Body(id).Name)

	reg, ok := r.Region("SHELL")
	require.True(t, ok)
	assert.Equal(t, "IRON", reg.Material)

	if diff := cmp.Diff([]string{"AIR", "SHELL"}, r.RegionsUsing(r.MustLookup("outer"))); diff != "" {
		t.Errorf("RegionsUsing(outer) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"CORE", "SHELL"}, r.RegionsUsing(r.MustLookup("inner"))); diff != "" {
		t.Errorf("RegionsUsing(inner) mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, r.HasMaterial("AIR"))
	assert.True(t, r.HasMaterial("BLCKHOLE"))
	assert.Equal(t, "+outer -inner", r.FormatZone(reg.Zones[0]))
}

func TestRegionOrderIsPreserved(t *testing.T) {
	r := buildShell(t)
	var names []string
	for _, reg := range r.Regions() {
		names = append(names, reg.Name)
	}
	assert.Equal(t, []string{"SHELL", "CORE", "AIR"}, names)
}

func TestBuildIntegrityErrors(t *testing.T) {
	tests := []struct {
		name   string
		build  func(b *Builder)
		entity string
		reason string
	}{
		{
			name: "duplicate body",
			build: func(b *Builder) {
				b.AddBody(sphere(t, "s", 1))
				b.AddBody(sphere(t, "s", 2))
			},
			entity: "s", reason: "duplicate body",
		},
		{
			name: "duplicate region",
			build: func(b *Builder) {
				id := b.AddBody(sphere(t, "s", 1))
				b.AddRegion(Region{Name: "R", Material: "IRON", Zones: []Zone{NewZone(Plus(id))}})
				b.AddRegion(Region{Name: "R", Material: "IRON", Zones: []Zone{NewZone(Plus(id))}})
			},
			entity: "R", reason: "duplicate region",
		},
		{
			name: "undeclared material",
			build: func(b *Builder) {
				id := b.AddBody(sphere(t, "s", 1))
				b.AddRegion(Region{Name: "R", Material: "UNOBTAIN", Zones: []Zone{NewZone(Plus(id))}})
			},
			entity: "R", reason: "not declared",
		},
		{
			name: "dangling body",
			build: func(b *Builder) {
				b.AddRegion(Region{Name: "R", Material: "IRON", Zones: []Zone{NewZone(Plus(7))}})
			},
			entity: "R", reason: "unknown body",
		},
		{
			name: "zone without include",
			build: func(b *Builder) {
				id := b.AddBody(sphere(t, "s", 1))
				b.AddRegion(Region{Name: "R", Material: "IRON", Zones: []Zone{NewZone(Minus(id))}})
			},
			entity: "R", reason: "no Include",
		},
		{
			name: "nested zone without include",
			build: func(b *Builder) {
				id := b.AddBody(sphere(t, "s", 1))
				b.AddRegion(Region{Name: "R", Material: "IRON", Zones: []Zone{
					NewZone(Plus(id), MinusZone(NewZone(Minus(id)))),
				}})
			},
			entity: "R", reason: "no Include",
		},
		{
			name: "lattice collides with region",
			build: func(b *Builder) {
				id := b.AddBody(sphere(t, "s", 1))
				b.AddRegion(Region{Name: "R", Material: "IRON", Zones: []Zone{NewZone(Plus(id))}})
				b.AddLattice(LatticeCell{Name: "R", Prototype: "R", Transform: geom.Identity()})
			},
			entity: "R", reason: "collides",
		},
		{
			name: "dangling prototype",
			build: func(b *Builder) {
				b.AddLattice(LatticeCell{Name: "L", Prototype: "NOPE", Transform: geom.Identity()})
			},
			entity: "L", reason: "prototype",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			_, err := b.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIntegrity))
			var rie *RegistryIntegrityError
			require.ErrorAs(t, err, &rie)
			assert.Equal(t, tt.entity, rie.Name)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestDeriveKeepsBodyIDs(t *testing.T) {
	r := buildShell(t)
	b := r.Derive()
	b.AddRegion(Region{Name: "ONLY", Material: "AIR", Zones: []Zone{NewZone(Plus(r.MustLookup("world")))}})
	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, r.MustLookup("world"), d.MustLookup("world"))
	assert.Len(t, d.Regions(), 1)
	assert.True(t, d.HasMaterial("AIR"))
	// The original is untouched.
	assert.Len(t, r.Regions(), 3)
}

func TestReplaceBody(t *testing.T) {
	r := buildShell(t)
	b := r.Derive()
	id := r.MustLookup("world")
	old := r.Body(id)
	grown, err := old.LengthSafetyVariant(1)
	require.NoError(t, err)

	require.NoError(t, b.ReplaceBody(id, grown))
	assert.Equal(t, grown, b.Body(id))
	assert.Error(t, b.ReplaceBody(id, grown.Renamed("other")))
	assert.Error(t, b.ReplaceBody(BodyID(99), grown))
	assert.Equal(t, old, r.Body(id))
}

// ---------------------------------------------------------------------------
// Zones
// ---------------------------------------------------------------------------

func TestZoneMapParity(t *testing.T) {
	// +a -(+b -(+c)) : a at parity 0, b at 1, c at 2.
	z := NewZone(Plus(0), MinusZone(NewZone(Plus(1), MinusZone(NewZone(Plus(2))))))
	got := map[BodyID]int{}
	mapped := z.Map(func(id BodyID, _ Sign, parity int) BodyID {
		got[id] = parity
		return id + 10
	})
	assert.Equal(t, map[BodyID]int{0: 0, 1: 1, 2: 2}, got)
	assert.Equal(t, []BodyID{10, 11, 12}, mapped.Bodies())
	// Original untouched.
	assert.Equal(t, []BodyID{0, 1, 2}, z.Bodies())
}

func TestZoneIncludedSubZoneKeepsParity(t *testing.T) {
	z := NewZone(Plus(0), PlusZone(NewZone(Plus(1))))
	z.Map(func(id BodyID, _ Sign, parity int) BodyID {
		assert.Equal(t, 0, parity, "body %d", id)
		return id
	})
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateCleanGeometry(t *testing.T) {
	res := ValidateAll(buildShell(t))
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateFindings(t *testing.T) {
	b := NewBuilder()
	s := b.AddBody(sphere(t, "s", 1))
	b.AddBody(sphere(t, "unused", 1))
	plane, err := body.New("p", body.KindXYP, body.AxisPlane{Axis: body.AxisZ, Value: 0})
	require.NoError(t, err)
	p := b.AddBody(plane)
	b.DeclareMaterial("SPARE")
	b.AddRegion(Region{Name: "EMPTY", Material: "IRON"})
	b.AddRegion(Region{Name: "SELF", Material: "IRON", Zones: []Zone{NewZone(Plus(s), Minus(s))}})
	b.AddRegion(Region{Name: "HALF", Material: "IRON", Zones: []Zone{NewZone(Plus(p))}})
	b.AddLattice(LatticeCell{Name: "L", Prototype: "SELF", Transform: geom.Identity()})
	r, err := b.Build()
	require.NoError(t, err)

	errs := Validate(r)
	assert.True(t, hasFinding(errs, SeverityError, "includes and excludes body s"))
	assert.True(t, hasFinding(errs, SeverityWarning, "no zones"))
	assert.True(t, hasFinding(errs, SeverityWarning, "not referenced"))
	assert.True(t, hasFinding(errs, SeverityWarning, "identity transform"))

	res := ValidateAll(r)
	assert.False(t, res.OK())
	assert.True(t, hasFinding(res.Warnings, SeverityWarning, "only by infinite bodies"))
	assert.True(t, hasFinding(res.Warnings, SeverityWarning, "declared material is not used"))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "ValidationSeverity(7)", ValidationSeverity(7).String())
	e := ValidationError{Entity: "body x", Message: "m", Severity: SeverityWarning}
	assert.Equal(t, "[warning] body x: m", e.Error())
}
