package convert

import (
	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/lattice"
	"github.com/chazu/zonecsg/pkg/registry"
)

// Output is the result of one conversion.
type Output struct {
	RunID string
	// Registry is the converted geometry: safety variants substituted and
	// disjoint regions split.
	Registry *registry.Registry
	Regions  []RegionOutput
	Lattices []LatticeOutput
}

// RegionOutput holds the evaluated placements of one region.
type RegionOutput struct {
	Name       string
	Material   string
	Placements []csg.Placement
}

// LatticeOutput lists the regions contained by one lattice cell.
type LatticeOutput struct {
	Cell      string
	Contained []lattice.Containment
}

// Region returns the output of the named region.
func (o *Output) Region(name string) (RegionOutput, bool) {
	for _, r := range o.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return RegionOutput{}, false
}

// Placements returns every placement of every region, in region order.
func (o *Output) Placements() []csg.Placement {
	var ps []csg.Placement
	for _, r := range o.Regions {
		ps = append(ps, r.Placements...)
	}
	return ps
}

func groupLattices(reg *registry.Registry, cs []lattice.Containment) []LatticeOutput {
	byCell := make(map[string][]lattice.Containment)
	for _, c := range cs {
		byCell[c.Cell] = append(byCell[c.Cell], c)
	}
	out := make([]LatticeOutput, 0, len(reg.Lattices()))
	for _, c := range reg.Lattices() {
		out = append(out, LatticeOutput{Cell: c.Name, Contained: byCell[c.Name]})
	}
	return out
}
