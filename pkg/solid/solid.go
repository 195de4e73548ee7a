// Package solid describes finite, bounded solids in their local frame.
//
// Shapes are plain values: they carry enough information for a geometry
// kernel to realise them and for callers to reason about them (volume,
// extent, boundary offset) without a kernel.
package solid

import (
	"fmt"
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
)

// Shape is a closed variant of finite solids expressed in a local frame.
// Box, Tube, Cone, EllipticalTube, Ellipsoid and Sphere are centred on the
// local origin; Tube, Cone and EllipticalTube run along local Z.
type Shape interface {
	shape()
	// Volume returns the enclosed volume.
	Volume() float64
	// Extent returns the local-frame bounding box.
	Extent() geom.Extent
	// Offset moves every boundary by delta along its outward normal.
	Offset(delta float64) (Shape, error)
}

func (Box) shape()            {}
func (Sphere) shape()         {}
func (Tube) shape()           {}
func (Cone) shape()           {}
func (EllipticalTube) shape() {}
func (Ellipsoid) shape()      {}
func (Polyhedron) shape()     {}
func (Quadric) shape()        {}

// Compile-time checks.
var (
	_ Shape = Box{}
	_ Shape = Sphere{}
	_ Shape = Tube{}
	_ Shape = Cone{}
	_ Shape = EllipticalTube{}
	_ Shape = Ellipsoid{}
	_ Shape = Polyhedron{}
	_ Shape = Quadric{}
)

// ErrCollapsed is returned by Offset when a negative delta consumes the
// shape entirely.
var ErrCollapsed = fmt.Errorf("solid: offset collapses shape")

func positive(vals ...float64) bool {
	for _, v := range vals {
		if !(v > 0) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Box is a rectangular box of the given full edge lengths.
type Box struct {
	Size geom.Vector3
}

func (b Box) Volume() float64 { return b.Size.X * b.Size.Y * b.Size.Z }

func (b Box) Extent() geom.Extent { return geom.CentredExtent(geom.Vector3{}, b.Size) }

func (b Box) Offset(delta float64) (Shape, error) {
	s := b.Size.Add(geom.Vec(2*delta, 2*delta, 2*delta))
	if !positive(s.X, s.Y, s.Z) {
		return nil, ErrCollapsed
	}
	return Box{Size: s}, nil
}

// Sphere is a ball of the given radius.
type Sphere struct {
	Radius float64
}

func (s Sphere) Volume() float64 { return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius }

func (s Sphere) Extent() geom.Extent {
	d := 2 * s.Radius
	return geom.CentredExtent(geom.Vector3{}, geom.Vec(d, d, d))
}

func (s Sphere) Offset(delta float64) (Shape, error) {
	r := s.Radius + delta
	if !positive(r) {
		return nil, ErrCollapsed
	}
	return Sphere{Radius: r}, nil
}

// Tube is a right circular cylinder.
type Tube struct {
	Radius float64
	Height float64
}

func (t Tube) Volume() float64 { return math.Pi * t.Radius * t.Radius * t.Height }

func (t Tube) Extent() geom.Extent {
	d := 2 * t.Radius
	return geom.CentredExtent(geom.Vector3{}, geom.Vec(d, d, t.Height))
}

func (t Tube) Offset(delta float64) (Shape, error) {
	r, h := t.Radius+delta, t.Height+2*delta
	if !positive(r, h) {
		return nil, ErrCollapsed
	}
	return Tube{Radius: r, Height: h}, nil
}

// Cone is a truncated right circular cone. Bottom is the radius at
// z = -Height/2, Top the radius at z = +Height/2. One of the radii may be
// zero.
type Cone struct {
	Bottom float64
	Top    float64
	Height float64
}

func (c Cone) Volume() float64 {
	return math.Pi * c.Height / 3 * (c.Bottom*c.Bottom + c.Bottom*c.Top + c.Top*c.Top)
}

func (c Cone) Extent() geom.Extent {
	d := 2 * math.Max(c.Bottom, c.Top)
	return geom.CentredExtent(geom.Vector3{}, geom.Vec(d, d, c.Height))
}

// Offset moves the lateral surface by delta along its normal and both caps
// by delta along Z. The slope of the lateral surface is preserved, so
// offsetting by delta and then by -delta restores the original cone.
func (c Cone) Offset(delta float64) (Shape, error) {
	slope := (c.Bottom - c.Top) / c.Height
	lateral := delta * math.Sqrt(1+slope*slope)
	b := c.Bottom + lateral + delta*slope
	t := c.Top + lateral - delta*slope
	h := c.Height + 2*delta
	if !positive(h) || (b <= 0 && t <= 0) {
		return nil, ErrCollapsed
	}
	return Cone{Bottom: math.Max(b, 0), Top: math.Max(t, 0), Height: h}, nil
}

// EllipticalTube is a cylinder with an elliptical cross-section of
// semi-axes A (local X) and B (local Y).
type EllipticalTube struct {
	A, B   float64
	Height float64
}

func (e EllipticalTube) Volume() float64 { return math.Pi * e.A * e.B * e.Height }

func (e EllipticalTube) Extent() geom.Extent {
	return geom.CentredExtent(geom.Vector3{}, geom.Vec(2*e.A, 2*e.B, e.Height))
}

func (e EllipticalTube) Offset(delta float64) (Shape, error) {
	a, b, h := e.A+delta, e.B+delta, e.Height+2*delta
	if !positive(a, b, h) {
		return nil, ErrCollapsed
	}
	return EllipticalTube{A: a, B: b, Height: h}, nil
}

// Ellipsoid has semi-axes A, B, C along local X, Y, Z.
type Ellipsoid struct {
	A, B, C float64
}

func (e Ellipsoid) Volume() float64 { return 4.0 / 3.0 * math.Pi * e.A * e.B * e.C }

func (e Ellipsoid) Extent() geom.Extent {
	return geom.CentredExtent(geom.Vector3{}, geom.Vec(2*e.A, 2*e.B, 2*e.C))
}

func (e Ellipsoid) Offset(delta float64) (Shape, error) {
	a, b, c := e.A+delta, e.B+delta, e.C+delta
	if !positive(a, b, c) {
		return nil, ErrCollapsed
	}
	return Ellipsoid{A: a, B: b, C: c}, nil
}

// Placed is a shape positioned in the world frame.
type Placed struct {
	Shape     Shape
	Transform geom.Transform
}

// Extent returns the world-frame bounding box of the placed shape.
func (p Placed) Extent() geom.Extent {
	return p.Shape.Extent().Transformed(p.Transform)
}

// Volume returns the shape volume. Rototranslations preserve volume.
func (p Placed) Volume() float64 {
	return p.Shape.Volume()
}

// Offset offsets the shape in place, keeping the transform.
func (p Placed) Offset(delta float64) (Placed, error) {
	s, err := p.Shape.Offset(delta)
	if err != nil {
		return Placed{}, err
	}
	return Placed{Shape: s, Transform: p.Transform}, nil
}

// Moved returns p with t applied after its own transform.
func (p Placed) Moved(t geom.Transform) Placed {
	return Placed{Shape: p.Shape, Transform: t.Compose(p.Transform)}
}

func (p Placed) String() string {
	return fmt.Sprintf("%T%+v @ %v", p.Shape, p.Shape, p.Transform)
}
