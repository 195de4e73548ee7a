package csg

import (
	"errors"

	"github.com/chazu/zonecsg/pkg/registry"
)

// maxConjunctions caps DNF expansion; larger zones are evaluated unpruned.
const maxConjunctions = 256

// errContradiction reports a zone whose every conjunction contains a body
// and its complement.
var errContradiction = errors.New("csg: zone is contradictory")

type literal struct {
	id       registry.BodyID
	positive bool
}

type conjunction []literal

// with returns c plus l, or false when l contradicts c.
func (c conjunction) with(l literal) (conjunction, bool) {
	for _, x := range c {
		if x.id == l.id {
			if x.positive != l.positive {
				return nil, false
			}
			return c, true
		}
	}
	out := make(conjunction, len(c), len(c)+1)
	copy(out, c)
	return append(out, l), true
}

// dnf holds a disjunction of conjunctions and whether any contradictory
// conjunction was dropped while building it.
type dnf struct {
	terms   []conjunction
	dropped bool
}

func (d *dnf) product(other []conjunction) bool {
	var out []conjunction
	for _, a := range d.terms {
		for _, b := range other {
			c, ok := a, true
			for _, l := range b {
				if c, ok = c.with(l); !ok {
					break
				}
			}
			if !ok {
				d.dropped = true
				continue
			}
			out = append(out, c)
			if len(out) > maxConjunctions {
				return false
			}
		}
	}
	d.terms = out
	return true
}

// toDNF normalises a zone. ok is false when the expansion exceeds
// maxConjunctions.
func toDNF(z registry.Zone) (d dnf, ok bool) {
	d.terms = []conjunction{{}}
	for _, o := range z.Operands {
		var factor []conjunction
		switch {
		case !o.IsZone():
			factor = []conjunction{{{id: o.Body, positive: o.Sign == registry.Include}}}
		case o.Sign == registry.Include:
			sub, ok := toDNF(*o.Sub)
			if !ok {
				return d, false
			}
			d.dropped = d.dropped || sub.dropped
			factor = sub.terms
		default:
			sub, ok := toDNF(*o.Sub)
			if !ok {
				return d, false
			}
			d.dropped = d.dropped || sub.dropped
			neg, ok := negate(sub.terms)
			if !ok {
				return d, false
			}
			d.dropped = d.dropped || neg.dropped
			factor = neg.terms
		}
		if !d.product(factor) {
			return d, false
		}
	}
	return d, true
}

// negate applies De Morgan: not(C1 or C2 ...) = and(not C1, not C2 ...),
// and each not Ci is a disjunction of negated literals.
func negate(terms []conjunction) (dnf, bool) {
	d := dnf{terms: []conjunction{{}}}
	for _, c := range terms {
		factor := make([]conjunction, len(c))
		for i, l := range c {
			factor[i] = conjunction{{id: l.id, positive: !l.positive}}
		}
		if !d.product(factor) {
			return d, false
		}
	}
	return d, true
}

// describePruned builds a union of conjunctions after removing the
// contradictory ones. pruned is false when nothing was removed or the
// zone cannot be expanded, in which case the caller describes the zone as
// written.
func describePruned(reg *registry.Registry, zone registry.Zone, opts Options) (n *Node, pruned bool, err error) {
	d, ok := toDNF(zone)
	if !ok || !d.dropped {
		return nil, false, nil
	}
	if len(d.terms) == 0 {
		return nil, true, errContradiction
	}
	for _, c := range d.terms {
		hasPositive := false
		for _, l := range c {
			hasPositive = hasPositive || l.positive
		}
		if !hasPositive {
			return nil, false, nil
		}
	}
	var union *Node
	for _, c := range d.terms {
		var ops []registry.Operand
		for _, l := range c {
			if l.positive {
				ops = append(ops, registry.Plus(l.id))
			} else {
				ops = append(ops, registry.Minus(l.id))
			}
		}
		term, err := describe(reg, registry.NewZone(ops...), opts, 0)
		if err != nil {
			return nil, true, err
		}
		if union == nil {
			union = term
		} else {
			union = &Node{Op: OpUnion, Left: union, Right: term}
		}
	}
	return union, true, nil
}
