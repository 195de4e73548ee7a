// Package registry holds a FLUKA geometry: bodies, regions, lattice cells
// and declared materials.
//
// A Registry is immutable once built. Bodies live in an arena addressed by
// BodyID; regions and lattice cells keep their declaration order. Every
// conversion pass consumes one Registry and returns a new one built with a
// Builder.
package registry

import (
	"fmt"
	"sort"

	"github.com/chazu/zonecsg/pkg/body"
)

// Registry is the immutable geometry produced by a Builder.
type Registry struct {
	bodies      []body.Body
	bodyIndex   map[string]BodyID
	regions     []Region
	regionIndex map[string]int
	lattices    []LatticeCell
	latticeIdx  map[string]int
	materials   []string
	materialSet map[string]bool
	// usage is the inverse index body -> names of the regions using it.
	usage [][]string
}

// Body returns the body with the given ID. It panics on foreign IDs.
func (r *Registry) Body(id BodyID) body.Body {
	return r.bodies[id]
}

// BodyName returns the name of the body with the given ID.
func (r *Registry) BodyName(id BodyID) string {
	if id < 0 || int(id) >= len(r.bodies) {
		return fmt.Sprintf("#%d", id)
	}
	return r.bodies[id].Name
}

// Lookup returns the ID of the body with the given name.
func (r *Registry) Lookup(name string) (BodyID, bool) {
	id, ok := r.bodyIndex[name]
	return id, ok
}

// MustLookup returns the ID of the named body, or panics.
func (r *Registry) MustLookup(name string) BodyID {
	id, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("registry: no body named %q", name))
	}
	return id
}

// Bodies returns all bodies in ID order.
func (r *Registry) Bodies() []body.Body {
	return append([]body.Body(nil), r.bodies...)
}

// BodyCount returns the number of bodies.
func (r *Registry) BodyCount() int {
	return len(r.bodies)
}

// Regions returns the regions in declaration order.
func (r *Registry) Regions() []Region {
	return append([]Region(nil), r.regions...)
}

// Region returns the named region.
func (r *Registry) Region(name string) (Region, bool) {
	i, ok := r.regionIndex[name]
	if !ok {
		return Region{}, false
	}
	return r.regions[i], true
}

// Lattices returns the lattice cells in declaration order.
func (r *Registry) Lattices() []LatticeCell {
	return append([]LatticeCell(nil), r.lattices...)
}

// Lattice returns the named lattice cell.
func (r *Registry) Lattice(name string) (LatticeCell, bool) {
	i, ok := r.latticeIdx[name]
	if !ok {
		return LatticeCell{}, false
	}
	return r.lattices[i], true
}

// Materials returns the declared materials in declaration order.
func (r *Registry) Materials() []string {
	return append([]string(nil), r.materials...)
}

// HasMaterial reports whether name is declared.
func (r *Registry) HasMaterial(name string) bool {
	return r.materialSet[name]
}

// RegionsUsing returns the names of the regions whose zones reference the
// body, sorted.
func (r *Registry) RegionsUsing(id BodyID) []string {
	if id < 0 || int(id) >= len(r.usage) {
		return nil
	}
	return append([]string(nil), r.usage[id]...)
}

// FormatZone renders a zone of this registry in FLUKA notation.
func (r *Registry) FormatZone(z Zone) string {
	return z.Format(r.BodyName)
}

// Derive returns a builder seeded with the bodies, materials and lattice
// cells of r, with the same BodyIDs. Regions are not copied.
func (r *Registry) Derive() *Builder {
	b := NewBuilder()
	b.CopyMaterials(r)
	b.CopyLattices(r)
	for _, bd := range r.bodies {
		b.AddBody(bd)
	}
	return b
}

func buildUsage(bodies int, regions []Region) [][]string {
	sets := make([]map[string]bool, bodies)
	for _, reg := range regions {
		for _, z := range reg.Zones {
			for _, id := range z.Bodies() {
				if id < 0 || int(id) >= bodies {
					continue
				}
				if sets[id] == nil {
					sets[id] = make(map[string]bool)
				}
				sets[id][reg.Name] = true
			}
		}
	}
	usage := make([][]string, bodies)
	for id, set := range sets {
		for name := range set {
			usage[id] = append(usage[id], name)
		}
		sort.Strings(usage[id])
	}
	return usage
}
