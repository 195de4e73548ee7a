// Package safety implements the length-safety pass: every body reference in
// every zone is replaced by a copy grown or shrunk by a small epsilon, so
// that independently converted neighbouring solids overlap slightly instead
// of sharing a coincident surface.
package safety

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/zonecsg/pkg/csg"
	"github.com/chazu/zonecsg/pkg/registry"
)

// DefaultEpsilon is the default length-safety distance.
const DefaultEpsilon = 1e-6

// ErrEpsilon is returned for a non-positive or non-finite epsilon.
var ErrEpsilon = errors.New("safety: epsilon must be positive")

type variantKey struct {
	id   registry.BodyID
	bias csg.Bias
}

// expander accumulates variants while zones are rewritten.
type expander struct {
	src      *registry.Registry
	dst      *registry.Builder
	eps      float64
	variants map[variantKey]registry.BodyID
	err      error
}

// Expand returns a new registry whose zones reference length-safety variants
// instead of the original bodies. Included bodies are trimmed by eps and
// excluded bodies extended by eps; each Exclude of a sub-zone swaps the two.
// Variants are named <body>_s and <body>_e and only referenced variants are
// registered. Lattice cells and declared materials carry over. reg is not
// modified.
func Expand(reg *registry.Registry, eps float64) (*registry.Registry, error) {
	if !(eps > 0) || math.IsInf(eps, 1) {
		return nil, fmt.Errorf("%w: got %g", ErrEpsilon, eps)
	}
	x := &expander{
		src:      reg,
		dst:      registry.NewBuilder(),
		eps:      eps,
		variants: make(map[variantKey]registry.BodyID),
	}
	x.dst.CopyMaterials(reg)
	x.dst.CopyLattices(reg)

	for _, r := range reg.Regions() {
		zones := make([]registry.Zone, len(r.Zones))
		for i, z := range r.Zones {
			zones[i] = z.Map(x.substitute)
		}
		if x.err != nil {
			return nil, fmt.Errorf("safety: region %q: %w", r.Name, x.err)
		}
		x.dst.AddRegion(registry.Region{Name: r.Name, Material: r.Material, Zones: zones})
	}
	out, err := x.dst.Build()
	if err != nil {
		return nil, fmt.Errorf("safety: %w", err)
	}
	return out, nil
}

func (x *expander) substitute(id registry.BodyID, sign registry.Sign, parity int) registry.BodyID {
	if x.err != nil {
		return id
	}
	bias := csg.BiasFor(sign, parity)
	key := variantKey{id: id, bias: bias}
	if v, ok := x.variants[key]; ok {
		return v
	}
	b := x.src.Body(id)
	delta := x.eps
	if bias == csg.Trim {
		delta = -delta
	}
	v, err := b.LengthSafetyVariant(delta)
	if err != nil {
		x.err = err
		return id
	}
	nid := x.dst.AddBody(v.Renamed(b.Name + bias.Suffix()))
	x.variants[key] = nid
	return nid
}

// Variant returns the name of the variant that replaces body name for an
// operand of the given sign at the given nesting parity.
func Variant(name string, sign registry.Sign, parity int) string {
	return name + csg.BiasFor(sign, parity).Suffix()
}
