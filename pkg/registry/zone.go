package registry

import (
	"fmt"
	"strings"

	"github.com/chazu/zonecsg/pkg/geom"
)

// BodyID addresses a body inside one Registry. IDs are dense indices and
// are only meaningful for the registry (or builder) that issued them.
type BodyID int32

// Sign is the polarity of a zone operand.
type Sign int

const (
	Include Sign = iota // intersect with the accumulated solid
	Exclude             // subtract from the accumulated solid
)

func (s Sign) String() string {
	if s == Exclude {
		return "-"
	}
	return "+"
}

// Operand is one signed term of a zone: either a body or a nested zone.
type Operand struct {
	Sign Sign
	Body BodyID
	// Sub is non-nil for a parenthesised sub-zone; Body is then unused.
	Sub *Zone
}

// IsZone reports whether the operand is a sub-zone.
func (o Operand) IsZone() bool { return o.Sub != nil }

// Plus returns an Include body operand.
func Plus(id BodyID) Operand { return Operand{Sign: Include, Body: id} }

// Minus returns an Exclude body operand.
func Minus(id BodyID) Operand { return Operand{Sign: Exclude, Body: id} }

// PlusZone returns an Include sub-zone operand.
func PlusZone(z Zone) Operand { return Operand{Sign: Include, Sub: &z} }

// MinusZone returns an Exclude sub-zone operand.
func MinusZone(z Zone) Operand { return Operand{Sign: Exclude, Sub: &z} }

// Zone is an ordered intersection of signed operands.
type Zone struct {
	Operands []Operand
}

// NewZone builds a zone from operands.
func NewZone(ops ...Operand) Zone {
	return Zone{Operands: ops}
}

// HasInclude reports whether the zone has at least one Include operand.
func (z Zone) HasInclude() bool {
	for _, o := range z.Operands {
		if o.Sign == Include {
			return true
		}
	}
	return false
}

// Bodies returns every body referenced by the zone, including sub-zones,
// in first-use order without duplicates.
func (z Zone) Bodies() []BodyID {
	seen := make(map[BodyID]bool)
	var out []BodyID
	z.Walk(func(o Operand, _ int) {
		if !o.IsZone() && !seen[o.Body] {
			seen[o.Body] = true
			out = append(out, o.Body)
		}
	})
	return out
}

// Walk visits every operand depth-first. depth counts enclosing sub-zones.
func (z Zone) Walk(fn func(o Operand, depth int)) {
	z.walk(fn, 0)
}

func (z Zone) walk(fn func(Operand, int), depth int) {
	for _, o := range z.Operands {
		fn(o, depth)
		if o.IsZone() {
			o.Sub.walk(fn, depth+1)
		}
	}
}

// Map returns a deep copy of z with every body operand rewritten by fn.
// parity counts the Exclude-of-sub-zone operands enclosing the operand.
func (z Zone) Map(fn func(id BodyID, sign Sign, parity int) BodyID) Zone {
	return z.mapParity(fn, 0)
}

func (z Zone) mapParity(fn func(BodyID, Sign, int) BodyID, parity int) Zone {
	out := Zone{Operands: make([]Operand, len(z.Operands))}
	for i, o := range z.Operands {
		if o.IsZone() {
			p := parity
			if o.Sign == Exclude {
				p++
			}
			sub := o.Sub.mapParity(fn, p)
			out.Operands[i] = Operand{Sign: o.Sign, Sub: &sub}
			continue
		}
		out.Operands[i] = Operand{Sign: o.Sign, Body: fn(o.Body, o.Sign, parity)}
	}
	return out
}

// Format renders the zone in FLUKA notation using names for body labels.
func (z Zone) Format(names func(BodyID) string) string {
	var sb strings.Builder
	for i, o := range z.Operands {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(o.Sign.String())
		if o.IsZone() {
			sb.WriteString("(" + o.Sub.Format(names) + ")")
		} else {
			sb.WriteString(names(o.Body))
		}
	}
	return sb.String()
}

// Region is a named union of zones filled with one material.
type Region struct {
	Name     string
	Material string
	Zones    []Zone
}

// LatticeCell places a copy of a prototype region.
type LatticeCell struct {
	Name      string
	Prototype string
	// Transform maps prototype coordinates into the cell.
	Transform geom.Transform
}

func (c LatticeCell) String() string {
	return fmt.Sprintf("lattice %s -> %s %v", c.Name, c.Prototype, c.Transform)
}
