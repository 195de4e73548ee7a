// Package body defines the FLUKA body primitives.
//
// A Body is an immutable value: a name, a kind, kind-specific parameters,
// a rototranslation and an expansion factor. Bodies never hold kernel
// solids; BoundedSolid turns one into a finite solid description that a
// geometry kernel can realise. Half-spaces, infinite cylinders and
// quadrics are clipped to a box sized from an extent so that every
// description is finite.
package body

import (
	"fmt"

	"github.com/chazu/zonecsg/pkg/geom"
)

// Kind distinguishes between body primitives.
type Kind int

const (
	KindRPP Kind = iota // axis-aligned box by min/max corners
	KindBOX             // general box: vertex plus three perpendicular edges
	KindSPH             // sphere
	KindRCC             // right circular cylinder
	KindREC             // right elliptical cylinder
	KindTRC             // truncated right circular cone
	KindELL             // ellipsoid of revolution from foci and major axis length
	KindWED             // right-angle wedge
	KindRAW             // alias of WED
	KindARB             // arbitrary convex polyhedron with up to 8 vertices and 6 faces
	KindXYP             // half-space z < v
	KindXZP             // half-space y < v
	KindYZP             // half-space x < v
	KindPLA             // generic half-space
	KindXCC             // infinite circular cylinder parallel to X
	KindYCC             // infinite circular cylinder parallel to Y
	KindZCC             // infinite circular cylinder parallel to Z
	KindXEC             // infinite elliptical cylinder parallel to X
	KindYEC             // infinite elliptical cylinder parallel to Y
	KindZEC             // infinite elliptical cylinder parallel to Z
	KindQUA             // generic quadric
)

var kindNames = [...]string{
	KindRPP: "RPP", KindBOX: "BOX", KindSPH: "SPH", KindRCC: "RCC", KindREC: "REC",
	KindTRC: "TRC", KindELL: "ELL", KindWED: "WED", KindRAW: "RAW", KindARB: "ARB",
	KindXYP: "XYP", KindXZP: "XZP", KindYZP: "YZP", KindPLA: "PLA",
	KindXCC: "XCC", KindYCC: "YCC", KindZCC: "ZCC",
	KindXEC: "XEC", KindYEC: "YEC", KindZEC: "ZEC", KindQUA: "QUA",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a FLUKA body code to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Body is one named FLUKA primitive.
type Body struct {
	Name      string
	Kind      Kind
	Data      Params
	Transform geom.Transform
	// Expansion uniformly scales every length before Transform is applied.
	Expansion float64
}

// Option configures a Body at construction.
type Option func(*Body)

// WithTransform sets the body rototranslation.
func WithTransform(t geom.Transform) Option {
	return func(b *Body) { b.Transform = t }
}

// WithExpansion sets the expansion factor.
func WithExpansion(e float64) Option {
	return func(b *Body) { b.Expansion = e }
}

// New validates data against kind and returns the body. Construction
// failures are *GeometryConstraintError.
func New(name string, kind Kind, data Params, opts ...Option) (Body, error) {
	b := Body{
		Name:      name,
		Kind:      kind,
		Data:      data,
		Transform: geom.Identity(),
		Expansion: 1,
	}
	for _, o := range opts {
		o(&b)
	}
	if name == "" {
		return Body{}, constraint(name, "empty body name")
	}
	if !(b.Expansion > 0) {
		return Body{}, constraint(name, fmt.Sprintf("expansion %g must be positive", b.Expansion))
	}
	if !b.Transform.Rotation.IsRotation(1e-9) {
		return Body{}, constraint(name, "transform rotation is not orthonormal")
	}
	if reason := validate(data); reason != "" {
		return Body{}, constraint(name, reason)
	}
	if want := kindOf(data); want != kind && !(kind == KindRAW && want == KindWED) {
		return Body{}, constraint(name, fmt.Sprintf("%s parameters given for %s", want, kind))
	}
	return b, nil
}

// Renamed returns a copy of b with a new name.
func (b Body) Renamed(name string) Body {
	b.Name = name
	return b
}

// IsInfinite reports whether the body is unbounded before clipping.
func (b Body) IsInfinite() bool {
	switch b.Data.(type) {
	case AxisPlane, Plane, AxisCylinder, AxisEllipticalCylinder, Quadric:
		return true
	}
	return false
}

// IsConvex reports whether the body is convex. Only quadrics can fail.
func (b Body) IsConvex() bool {
	_, q := b.Data.(Quadric)
	return !q
}

func (b Body) String() string {
	return fmt.Sprintf("%s %s", b.Kind, b.Name)
}
