package registry

import (
	"errors"
	"fmt"

	"github.com/chazu/zonecsg/pkg/body"
)

// PredefinedMaterials are always declared in every registry.
var PredefinedMaterials = []string{
	"BLCKHOLE", "VACUUM", "HYDROGEN", "HELIUM", "BERYLLIU", "CARBON", "NITROGEN",
	"OXYGEN", "MAGNESIU", "ALUMINUM", "IRON", "COPPER", "SILVER", "SILICON", "GOLD",
	"MERCURY", "LEAD", "TANTALUM", "SODIUM", "ARGON", "CALCIUM", "TIN", "TUNGSTEN",
	"TITANIUM", "NICKEL",
}

// Builder accumulates a geometry and checks its integrity in Build. A
// Builder is not safe for concurrent use.
type Builder struct {
	bodies    []body.Body
	bodyIndex map[string]BodyID
	regions   []Region
	lattices  []LatticeCell
	materials []string
	declared  map[string]bool
}

// NewBuilder returns a builder with only the predefined materials declared.
func NewBuilder() *Builder {
	b := &Builder{
		bodyIndex: make(map[string]BodyID),
		declared:  make(map[string]bool),
	}
	for _, m := range PredefinedMaterials {
		b.DeclareMaterial(m)
	}
	return b
}

// AddBody appends a body and returns its ID. Duplicate names are reported
// by Build; the name index keeps the first body.
func (b *Builder) AddBody(bd body.Body) BodyID {
	id := BodyID(len(b.bodies))
	b.bodies = append(b.bodies, bd)
	if _, dup := b.bodyIndex[bd.Name]; !dup {
		b.bodyIndex[bd.Name] = id
	}
	return id
}

// Lookup returns the ID of a body added so far.
func (b *Builder) Lookup(name string) (BodyID, bool) {
	id, ok := b.bodyIndex[name]
	return id, ok
}

// Body returns a body added so far.
func (b *Builder) Body(id BodyID) body.Body {
	return b.bodies[id]
}

// ReplaceBody swaps the body behind id for bd, which must carry the same
// name.
func (b *Builder) ReplaceBody(id BodyID, bd body.Body) error {
	if int(id) < 0 || int(id) >= len(b.bodies) {
		return fmt.Errorf("registry: no body with id %d", id)
	}
	if old := b.bodies[id].Name; old != bd.Name {
		return fmt.Errorf("registry: replacing body %q with %q", old, bd.Name)
	}
	b.bodies[id] = bd
	return nil
}

// AddRegion appends a region.
func (b *Builder) AddRegion(r Region) {
	b.regions = append(b.regions, r)
}

// AddLattice appends a lattice cell.
func (b *Builder) AddLattice(c LatticeCell) {
	b.lattices = append(b.lattices, c)
}

// DeclareMaterial declares a material name. Redeclaring is a no-op.
func (b *Builder) DeclareMaterial(name string) {
	if b.declared[name] {
		return
	}
	b.declared[name] = true
	b.materials = append(b.materials, name)
}

// CopyMaterials declares every material of r.
func (b *Builder) CopyMaterials(r *Registry) {
	for _, m := range r.materials {
		b.DeclareMaterial(m)
	}
}

// CopyLattices appends every lattice cell of r.
func (b *Builder) CopyLattices(r *Registry) {
	b.lattices = append(b.lattices, r.lattices...)
}

// Build checks integrity and returns the immutable registry. All integrity
// failures are joined into the returned error; each is a
// *RegistryIntegrityError.
func (b *Builder) Build() (*Registry, error) {
	var errs []error
	fail := func(kind, name, reason string) {
		errs = append(errs, &RegistryIntegrityError{Kind: kind, Name: name, Reason: reason})
	}

	for i, bd := range b.bodies {
		if first := b.bodyIndex[bd.Name]; int(first) != i {
			fail("body", bd.Name, "duplicate body name")
		}
	}

	regionIndex := make(map[string]int, len(b.regions))
	for i, reg := range b.regions {
		if _, dup := regionIndex[reg.Name]; dup {
			fail("region", reg.Name, "duplicate region name")
			continue
		}
		regionIndex[reg.Name] = i
	}
	for _, reg := range b.regions {
		if reg.Name == "" {
			fail("region", reg.Name, "empty region name")
		}
		if !b.declared[reg.Material] {
			fail("region", reg.Name, fmt.Sprintf("material %q is not declared", reg.Material))
		}
		for zi, z := range reg.Zones {
			b.checkZone(z, func(reason string) {
				fail("region", reg.Name, fmt.Sprintf("zone %d: %s", zi, reason))
			})
		}
	}

	latticeIdx := make(map[string]int, len(b.lattices))
	for i, c := range b.lattices {
		if _, dup := latticeIdx[c.Name]; dup {
			fail("lattice", c.Name, "duplicate lattice name")
			continue
		}
		latticeIdx[c.Name] = i
		if _, clash := regionIndex[c.Name]; clash {
			fail("lattice", c.Name, "name collides with a region")
		}
		if _, ok := regionIndex[c.Prototype]; !ok {
			fail("lattice", c.Name, fmt.Sprintf("prototype region %q does not exist", c.Prototype))
		}
		if !c.Transform.Rotation.IsRotation(1e-9) {
			fail("lattice", c.Name, "transform rotation is not orthonormal")
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	r := &Registry{
		bodies:      append([]body.Body(nil), b.bodies...),
		bodyIndex:   make(map[string]BodyID, len(b.bodyIndex)),
		regions:     append([]Region(nil), b.regions...),
		regionIndex: regionIndex,
		lattices:    append([]LatticeCell(nil), b.lattices...),
		latticeIdx:  latticeIdx,
		materials:   append([]string(nil), b.materials...),
		materialSet: make(map[string]bool, len(b.declared)),
	}
	for k, v := range b.bodyIndex {
		r.bodyIndex[k] = v
	}
	for k := range b.declared {
		r.materialSet[k] = true
	}
	r.usage = buildUsage(len(r.bodies), r.regions)
	return r, nil
}

func (b *Builder) checkZone(z Zone, fail func(string)) {
	if !z.HasInclude() {
		fail("no Include operand")
	}
	for _, o := range z.Operands {
		if o.IsZone() {
			b.checkZone(*o.Sub, fail)
			continue
		}
		if o.Body < 0 || int(o.Body) >= len(b.bodies) {
			fail(fmt.Sprintf("references unknown body #%d", o.Body))
		}
	}
}
