// Package csg turns zones and regions into boolean trees of bounded solids
// and evaluates them through a geometry kernel.
//
// Describe builds a pure description of a zone without touching a kernel.
// An Evaluator folds that description into kernel solids, null-testing the
// accumulated solid as it goes, and emits one Placement per zone. A region
// is therefore a placement list rather than a single nested union.
package csg

import (
	"fmt"
	"strings"

	"github.com/chazu/zonecsg/pkg/body"
	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/registry"
	"github.com/chazu/zonecsg/pkg/solid"
)

// Op is the operation of a tree node.
type Op int

const (
	OpLeaf Op = iota
	OpIntersect
	OpSubtract
	OpUnion
)

func (o Op) String() string {
	return [...]string{"leaf", "intersect", "subtract", "union"}[o]
}

// Node is one node of a zone description tree. Leaves hold a bounded body;
// Intersect and Subtract are left folds of the zone operands; Union only
// appears after DNF pruning.
type Node struct {
	Op Op

	// Leaf fields.
	Body      string
	ID        registry.BodyID
	Shape     solid.Placed
	Omittable bool
	// Parity counts the excluded sub-zones enclosing the leaf.
	Parity int

	Left, Right *Node
}

// Leaves returns the leaves in evaluation order.
func (n *Node) Leaves() []*Node {
	if n == nil {
		return nil
	}
	if n.Op == OpLeaf {
		return []*Node{n}
	}
	return append(n.Left.Leaves(), n.Right.Leaves()...)
}

// Extent returns a conservative world-frame bound of the tree.
func (n *Node) Extent() geom.Extent {
	switch n.Op {
	case OpLeaf:
		return n.Shape.Extent()
	case OpIntersect:
		if e, ok := n.Left.Extent().Intersect(n.Right.Extent()); ok {
			return e
		}
		return n.Left.Extent()
	case OpSubtract:
		return n.Left.Extent()
	default:
		return n.Left.Extent().Union(n.Right.Extent())
	}
}

// Moved returns a copy of the tree with t applied after every leaf
// transform.
func (n *Node) Moved(t geom.Transform) *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Op == OpLeaf {
		c.Shape = n.Shape.Moved(t)
		return &c
	}
	c.Left = n.Left.Moved(t)
	c.Right = n.Right.Moved(t)
	return &c
}

// Fingerprint identifies the geometry of the tree. Equal fingerprints
// describe the same solid.
func (n *Node) Fingerprint() string {
	var sb strings.Builder
	n.fingerprint(&sb)
	return sb.String()
}

func (n *Node) fingerprint(sb *strings.Builder) {
	if n.Op == OpLeaf {
		fmt.Fprintf(sb, "%T%v|%v|%v", n.Shape.Shape, n.Shape.Shape, n.Shape.Transform.Rotation, n.Shape.Transform.Translation)
		if n.Omittable {
			sb.WriteByte('?')
		}
		return
	}
	sb.WriteString(n.Op.String())
	sb.WriteByte('(')
	n.Left.fingerprint(sb)
	sb.WriteByte(',')
	n.Right.fingerprint(sb)
	sb.WriteByte(')')
}

// String renders the tree with body names.
func (n *Node) String() string {
	switch n.Op {
	case OpLeaf:
		return n.Body
	case OpIntersect:
		return fmt.Sprintf("(%s & %s)", n.Left, n.Right)
	case OpSubtract:
		return fmt.Sprintf("(%s - %s)", n.Left, n.Right)
	default:
		return fmt.Sprintf("(%s | %s)", n.Left, n.Right)
	}
}

// Bias says which length-safety variant replaces a body.
type Bias int

const (
	Trim   Bias = iota // shrink by epsilon, suffix _s
	Extend             // grow by epsilon, suffix _e
)

func (b Bias) String() string {
	if b == Extend {
		return "extend"
	}
	return "trim"
}

// Suffix returns the name suffix of the variant.
func (b Bias) Suffix() string {
	if b == Extend {
		return "_e"
	}
	return "_s"
}

// BiasFor returns the variant an operand of the given sign takes at the
// given nesting parity. At even parity included bodies are trimmed and
// excluded bodies extended; odd parity swaps the two.
func BiasFor(sign registry.Sign, parity int) Bias {
	trim := sign == registry.Include
	if parity%2 != 0 {
		trim = !trim
	}
	if trim {
		return Trim
	}
	return Extend
}

// Options control how zones are described.
type Options struct {
	// Extents bound infinite bodies; bodies without an entry use
	// Bound.InfiniteLength.
	Extents map[registry.BodyID]geom.Extent
	// Omit drops operands. An omitted Include is kept when it is the last
	// Include of its zone.
	Omit map[registry.BodyID]bool
	// Omittable marks Exclude operands whose subtraction may be skipped when
	// it empties the accumulated solid.
	Omittable map[registry.BodyID]bool
	Bound     body.BoundOptions
	// Override, when set, is applied after every leaf transform.
	Override *geom.Transform
	// PruneDNF removes contradictory conjunctions before evaluation.
	PruneDNF bool
}

// DefaultOptions returns options with default bounding and nothing
// omitted.
func DefaultOptions() Options {
	return Options{Bound: body.DefaultBoundOptions()}
}

func (o Options) bound() body.BoundOptions {
	if o.Bound == (body.BoundOptions{}) {
		return body.DefaultBoundOptions()
	}
	return o.Bound
}

// Describe builds the description tree of a zone. Operands are folded left
// to right after hoisting the first Include to the front, so the fold
// always starts from a solid. With PruneDNF a zone holding contradictory
// conjunctions is rewritten as the union of the remaining ones.
func Describe(reg *registry.Registry, zone registry.Zone, opts Options) (*Node, error) {
	if opts.PruneDNF {
		n, pruned, err := describePruned(reg, zone, opts)
		if pruned {
			return n, err
		}
	}
	return describe(reg, zone, opts, 0)
}

func describe(reg *registry.Registry, zone registry.Zone, opts Options, parity int) (*Node, error) {
	ops := hoistInclude(dropOmitted(zone.Operands, opts.Omit))
	if len(ops) == 0 || ops[0].Sign != registry.Include {
		return nil, fmt.Errorf("csg: zone %s has no Include operand", reg.FormatZone(zone))
	}
	var acc *Node
	for _, o := range ops {
		var term *Node
		if o.IsZone() {
			p := parity
			if o.Sign == registry.Exclude {
				p++
			}
			sub, err := describe(reg, *o.Sub, opts, p)
			if err != nil {
				return nil, err
			}
			term = sub
		} else {
			leaf, err := describeLeaf(reg, o, opts, parity)
			if err != nil {
				return nil, err
			}
			term = leaf
		}
		switch {
		case acc == nil:
			acc = term
		case o.Sign == registry.Include:
			acc = &Node{Op: OpIntersect, Left: acc, Right: term}
		default:
			acc = &Node{Op: OpSubtract, Left: acc, Right: term}
		}
	}
	return acc, nil
}

func describeLeaf(reg *registry.Registry, o registry.Operand, opts Options, parity int) (*Node, error) {
	b := reg.Body(o.Body)
	var ext *geom.Extent
	if e, ok := opts.Extents[o.Body]; ok {
		ext = &e
	}
	p, err := b.BoundedSolid(ext, opts.bound())
	if err != nil {
		return nil, fmt.Errorf("csg: %w", err)
	}
	if opts.Override != nil {
		p = p.Moved(*opts.Override)
	}
	return &Node{
		Op:        OpLeaf,
		Body:      b.Name,
		ID:        o.Body,
		Shape:     p,
		Omittable: o.Sign == registry.Exclude && opts.Omittable[o.Body],
		Parity:    parity,
	}, nil
}

func dropOmitted(ops []registry.Operand, omit map[registry.BodyID]bool) []registry.Operand {
	if len(omit) == 0 {
		return ops
	}
	includes := 0
	for _, o := range ops {
		if o.Sign == registry.Include && (o.IsZone() || !omit[o.Body]) {
			includes++
		}
	}
	out := make([]registry.Operand, 0, len(ops))
	kept := false
	for _, o := range ops {
		if !o.IsZone() && omit[o.Body] {
			if o.Sign == registry.Exclude {
				continue
			}
			if includes > 0 || kept {
				continue
			}
			kept = true
		}
		out = append(out, o)
	}
	return out
}

func hoistInclude(ops []registry.Operand) []registry.Operand {
	for i, o := range ops {
		if o.Sign != registry.Include {
			continue
		}
		if i == 0 {
			return ops
		}
		out := make([]registry.Operand, 0, len(ops))
		out = append(out, o)
		out = append(out, ops[:i]...)
		return append(out, ops[i+1:]...)
	}
	return ops
}
