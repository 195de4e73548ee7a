package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/solid"
)

// scaled applies the expansion factor to every length and position.
func scaled(p Params, e float64) Params {
	if e == 1 {
		return p
	}
	switch d := p.(type) {
	case RPP:
		return RPP{Min: d.Min.Scale(e), Max: d.Max.Scale(e)}
	case Box:
		return Box{V: d.V.Scale(e), H1: d.H1.Scale(e), H2: d.H2.Scale(e), H3: d.H3.Scale(e)}
	case Sphere:
		return Sphere{Centre: d.Centre.Scale(e), Radius: d.Radius * e}
	case RCC:
		return RCC{V: d.V.Scale(e), H: d.H.Scale(e), Radius: d.Radius * e}
	case REC:
		return REC{V: d.V.Scale(e), H: d.H.Scale(e), R1: d.R1.Scale(e), R2: d.R2.Scale(e)}
	case TRC:
		return TRC{V: d.V.Scale(e), H: d.H.Scale(e), R1: d.R1 * e, R2: d.R2 * e}
	case Ellipsoid:
		return Ellipsoid{F1: d.F1.Scale(e), F2: d.F2.Scale(e), Length: d.Length * e}
	case Wedge:
		return Wedge{V: d.V.Scale(e), H1: d.H1.Scale(e), H2: d.H2.Scale(e), H3: d.H3.Scale(e)}
	case ARB:
		out := d
		for i := range out.Vertices {
			out.Vertices[i] = d.Vertices[i].Scale(e)
		}
		out.Shift = d.Shift * e
		return out
	case AxisPlane:
		return AxisPlane{Axis: d.Axis, Value: d.Value * e}
	case Plane:
		return Plane{Normal: d.Normal, Point: d.Point.Scale(e)}
	case AxisCylinder:
		return AxisCylinder{Axis: d.Axis, A: d.A * e, B: d.B * e, Radius: d.Radius * e}
	case AxisEllipticalCylinder:
		return AxisEllipticalCylinder{Axis: d.Axis, A: d.A * e, B: d.B * e, SemiA: d.SemiA * e, SemiB: d.SemiB * e}
	case Quadric:
		// F(p/e): second order terms scale by 1/e^2, first order by 1/e.
		out := Quadric{Shift: d.Shift * e}
		for i, c := range d.Coeffs {
			switch {
			case i < 6:
				out.Coeffs[i] = c / (e * e)
			case i < 9:
				out.Coeffs[i] = c / e
			default:
				out.Coeffs[i] = c
			}
		}
		return out
	}
	return p
}

// LengthSafetyVariant returns the body with every boundary moved by delta
// along its outward normal: positive delta grows the body, negative delta
// shrinks it. Infinite bodies move only their finite boundaries. The
// result has the expansion folded into its parameters.
func (b Body) LengthSafetyVariant(delta float64) (Body, error) {
	data, err := offset(scaled(b.Data, b.Expansion), delta)
	if err != nil {
		return Body{}, constraint(b.Name, fmt.Sprintf("length safety offset %g: %v", delta, err))
	}
	if reason := validate(data); reason != "" {
		return Body{}, constraint(b.Name, fmt.Sprintf("length safety offset %g: %s", delta, reason))
	}
	return Body{Name: b.Name, Kind: b.Kind, Data: data, Transform: b.Transform, Expansion: 1}, nil
}

var errCollapsed = errors.New("body collapses")

// survives reports whether every length stays positive after growing by
// grow on each side.
func survives(grow float64, lengths ...float64) bool {
	for _, l := range lengths {
		if !(l+grow > 0) {
			return false
		}
	}
	return true
}

func offset(p Params, delta float64) (Params, error) {
	switch d := p.(type) {
	case RPP:
		dv := geom.Vec(delta, delta, delta)
		return RPP{Min: d.Min.Sub(dv), Max: d.Max.Add(dv)}, nil

	case Box:
		if !survives(2*delta, d.H1.Length(), d.H2.Length(), d.H3.Length()) {
			return nil, errCollapsed
		}
		u1, u2, u3 := unit(d.H1), unit(d.H2), unit(d.H3)
		return Box{
			V:  d.V.Sub(u1.Add(u2).Add(u3).Scale(delta)),
			H1: d.H1.Add(u1.Scale(2 * delta)),
			H2: d.H2.Add(u2.Scale(2 * delta)),
			H3: d.H3.Add(u3.Scale(2 * delta)),
		}, nil

	case Sphere:
		return Sphere{Centre: d.Centre, Radius: d.Radius + delta}, nil

	case RCC:
		if !survives(2*delta, d.H.Length()) {
			return nil, errCollapsed
		}
		h := unit(d.H)
		return RCC{V: d.V.Sub(h.Scale(delta)), H: d.H.Add(h.Scale(2 * delta)), Radius: d.Radius + delta}, nil

	case REC:
		if !survives(2*delta, d.H.Length()) || !survives(delta, d.R1.Length(), d.R2.Length()) {
			return nil, errCollapsed
		}
		h := unit(d.H)
		return REC{
			V:  d.V.Sub(h.Scale(delta)),
			H:  d.H.Add(h.Scale(2 * delta)),
			R1: d.R1.Add(unit(d.R1).Scale(delta)),
			R2: d.R2.Add(unit(d.R2).Scale(delta)),
		}, nil

	case TRC:
		s, err := solid.Cone{Bottom: d.R1, Top: d.R2, Height: d.H.Length()}.Offset(delta)
		if err != nil {
			return nil, err
		}
		c := s.(solid.Cone)
		h := unit(d.H)
		return TRC{V: d.V.Sub(h.Scale(delta)), H: h.Scale(c.Height), R1: c.Bottom, R2: c.Top}, nil

	case Ellipsoid:
		// Semi-axes a and b both grow by delta, so c'^2 = a'^2 - b'^2.
		a := d.Length / 2
		c := d.F2.Sub(d.F1).Length() / 2
		bb := math.Sqrt(a*a - c*c)
		c2 := c*c + 2*delta*(a-bb)
		if a+delta <= 0 || bb+delta <= 0 || c2 < 0 {
			return nil, errCollapsed
		}
		mid := d.F1.Add(d.F2).Scale(0.5)
		axis := unit(d.F2.Sub(d.F1)).Scale(math.Sqrt(c2))
		return Ellipsoid{F1: mid.Sub(axis), F2: mid.Add(axis), Length: 2 * (a + delta)}, nil

	case Wedge:
		poly, err := wedgePolyhedron(d)
		if err != nil {
			return nil, err
		}
		s, err := poly.OffsetVertices(delta)
		if err != nil {
			return nil, err
		}
		v := s.Vertices
		return Wedge{V: v[0], H1: v[1].Sub(v[0]), H2: v[2].Sub(v[0]), H3: v[3].Sub(v[0])}, nil

	case ARB:
		poly, err := arbPolyhedron(d)
		if err != nil {
			return nil, err
		}
		// Offset the face planes rather than the vertices: corners where
		// four faces meet have no single shifted position.
		if _, err := poly.Offset(delta); err != nil {
			return nil, err
		}
		out := d
		out.Shift = d.Shift + delta
		return out, nil

	case AxisPlane:
		return AxisPlane{Axis: d.Axis, Value: d.Value + delta}, nil

	case Plane:
		return Plane{Normal: d.Normal, Point: d.Point.Add(unit(d.Normal).Scale(delta))}, nil

	case AxisCylinder:
		return AxisCylinder{Axis: d.Axis, A: d.A, B: d.B, Radius: d.Radius + delta}, nil

	case AxisEllipticalCylinder:
		return AxisEllipticalCylinder{Axis: d.Axis, A: d.A, B: d.B, SemiA: d.SemiA + delta, SemiB: d.SemiB + delta}, nil

	case Quadric:
		return Quadric{Coeffs: d.Coeffs, Shift: d.Shift + delta}, nil
	}
	return nil, fmt.Errorf("unknown parameters %T", p)
}
