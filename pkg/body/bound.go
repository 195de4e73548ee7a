package body

import (
	"fmt"
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
	"github.com/chazu/zonecsg/pkg/solid"
)

// Defaults for bounding infinite bodies.
const (
	DefaultTolerance      = 1.05
	DefaultInfiniteLength = 50000.0
)

// BoundOptions sizes the finite stand-ins of infinite bodies.
type BoundOptions struct {
	// Tolerance multiplies the covering size; values below
	// DefaultTolerance are raised to it.
	Tolerance float64
	// InfiniteLength is the size used when no extent is known.
	InfiniteLength float64
}

// DefaultBoundOptions returns the standard bounding options.
func DefaultBoundOptions() BoundOptions {
	return BoundOptions{Tolerance: DefaultTolerance, InfiniteLength: DefaultInfiniteLength}
}

// length returns the edge length that covers extent after any rotation.
func (o BoundOptions) length(extent *geom.Extent) float64 {
	if extent == nil {
		if o.InfiniteLength > 0 {
			return o.InfiniteLength
		}
		return DefaultInfiniteLength
	}
	return math.Max(o.Tolerance, DefaultTolerance) * math.Sqrt(3) * extent.MaxSize()
}

// BoundedSolid returns a finite description of the body. Finite bodies
// ignore extent. Infinite bodies are clipped to a box, tube or elliptical
// tube that covers extent, or that is InfiniteLength long when extent is
// nil.
func (b Body) BoundedSolid(extent *geom.Extent, opts BoundOptions) (solid.Placed, error) {
	data := scaled(b.Data, b.Expansion)
	var centre *geom.Vector3
	if extent != nil {
		c := b.Transform.Inverse().Apply(extent.Centre())
		centre = &c
	}
	shape, frame, err := local(data, centre, opts.length(extent))
	if err != nil {
		return solid.Placed{}, fmt.Errorf("body %q: %w", b.Name, err)
	}
	return solid.Placed{Shape: shape, Transform: b.Transform.Compose(frame)}, nil
}

// Centre returns the world-frame centre of the bounded body.
func (b Body) Centre(extent *geom.Extent) geom.Vector3 {
	p, err := b.BoundedSolid(extent, DefaultBoundOptions())
	if err != nil {
		return b.Transform.Translation
	}
	return p.Transform.Apply(p.Shape.Extent().Centre())
}

// Rotation returns the world rotation of the body's local frame.
func (b Body) Rotation() geom.Matrix3 {
	return b.Transform.Rotation.Mul(frameRotation(b.Data))
}

// axisFrame maps local Z onto axis a, keeping the cyclic order of the other
// two axes on local X and Y.
func axisFrame(a Axis) geom.Matrix3 {
	switch a {
	case AxisX:
		return geom.FromColumns(geom.UnitY, geom.UnitZ, geom.UnitX)
	case AxisY:
		return geom.FromColumns(geom.UnitZ, geom.UnitX, geom.UnitY)
	}
	return geom.Identity3()
}

func unit(v geom.Vector3) geom.Vector3 {
	u, _ := v.Normalize()
	return u
}

// rightHanded builds a rotation from three perpendicular directions,
// flipping the last one if they are left-handed.
func rightHanded(a, b, c geom.Vector3) geom.Matrix3 {
	a, b, c = unit(a), unit(b), unit(c)
	if a.Cross(b).Dot(c) < 0 {
		c = c.Neg()
	}
	return geom.FromColumns(a, b, c)
}

func frameRotation(p Params) geom.Matrix3 {
	switch d := p.(type) {
	case Box:
		return rightHanded(d.H1, d.H2, d.H3)
	case RCC:
		return geom.AlignZ(d.H)
	case REC:
		return recFrame(d)
	case TRC:
		return geom.AlignZ(d.H)
	case Ellipsoid:
		// Coincident foci make a sphere; any frame will do.
		if d.F1 == d.F2 {
			return geom.Identity3()
		}
		return geom.AlignZ(d.F2.Sub(d.F1))
	case AxisPlane:
		return axisFrame(d.Axis)
	case Plane:
		return geom.AlignZ(d.Normal)
	case AxisCylinder:
		return axisFrame(d.Axis)
	case AxisEllipticalCylinder:
		return axisFrame(d.Axis)
	}
	return geom.Identity3()
}

func recFrame(d REC) geom.Matrix3 {
	r1, r2, h := unit(d.R1), unit(d.R2), unit(d.H)
	if r1.Cross(r2).Dot(h) < 0 {
		r2 = r2.Neg()
	}
	return geom.FromColumns(r1, r2, h)
}

func placedAt(rot geom.Matrix3, centre geom.Vector3) geom.Transform {
	return geom.Transform{Rotation: rot, Translation: centre}
}

// local returns the shape and its placement in body coordinates. centre is
// the extent centre in body coordinates, nil when unknown.
func local(p Params, centre *geom.Vector3, length float64) (solid.Shape, geom.Transform, error) {
	switch d := p.(type) {
	case RPP:
		return solid.Box{Size: d.Max.Sub(d.Min)}, geom.Translation(d.Min.Add(d.Max).Scale(0.5)), nil

	case Box:
		size := geom.Vec(d.H1.Length(), d.H2.Length(), d.H3.Length())
		c := d.V.Add(d.H1.Add(d.H2).Add(d.H3).Scale(0.5))
		return solid.Box{Size: size}, placedAt(frameRotation(d), c), nil

	case Sphere:
		return solid.Sphere{Radius: d.Radius}, geom.Translation(d.Centre), nil

	case RCC:
		return solid.Tube{Radius: d.Radius, Height: d.H.Length()},
			placedAt(frameRotation(d), d.V.Add(d.H.Scale(0.5))), nil

	case REC:
		return solid.EllipticalTube{A: d.R1.Length(), B: d.R2.Length(), Height: d.H.Length()},
			placedAt(frameRotation(d), d.V.Add(d.H.Scale(0.5))), nil

	case TRC:
		return solid.Cone{Bottom: d.R1, Top: d.R2, Height: d.H.Length()},
			placedAt(frameRotation(d), d.V.Add(d.H.Scale(0.5))), nil

	case Ellipsoid:
		a := d.Length / 2
		c := d.F2.Sub(d.F1).Length() / 2
		if a <= c {
			return nil, geom.Transform{}, fmt.Errorf("semi-major axis %g does not exceed linear eccentricity %g", a, c)
		}
		bb := math.Sqrt(a*a - c*c)
		return solid.Ellipsoid{A: bb, B: bb, C: a},
			placedAt(frameRotation(d), d.F1.Add(d.F2).Scale(0.5)), nil

	case Wedge:
		poly, err := wedgePolyhedron(d)
		if err != nil {
			return nil, geom.Transform{}, err
		}
		return poly, geom.Identity(), nil

	case ARB:
		poly, err := arbPolyhedron(d)
		if err != nil {
			return nil, geom.Transform{}, err
		}
		return poly, geom.Identity(), nil

	case AxisPlane:
		return halfSpace(axisFrame(d.Axis), d.Value, centre, nil, length)

	case Plane:
		n := unit(d.Normal)
		return halfSpace(frameRotation(d), n.Dot(d.Point), centre, &d.Point, length)

	case AxisCylinder:
		rot := axisFrame(d.Axis)
		return solid.Tube{Radius: d.Radius, Height: length},
			placedAt(rot, rot.MulVec(geom.Vec(d.A, d.B, axial(rot, centre)))), nil

	case AxisEllipticalCylinder:
		rot := axisFrame(d.Axis)
		return solid.EllipticalTube{A: d.SemiA, B: d.SemiB, Height: length},
			placedAt(rot, rot.MulVec(geom.Vec(d.A, d.B, axial(rot, centre)))), nil

	case Quadric:
		c := geom.Vector3{}
		if centre != nil {
			c = *centre
		}
		bounds := geom.CentredExtent(c, geom.Vec(length, length, length))
		return solid.Quadric{Coeffs: d.Coeffs, Bounds: bounds, Shift: d.Shift}, geom.Identity(), nil
	}
	return nil, geom.Transform{}, fmt.Errorf("unknown parameters %T", p)
}

// axial returns the local Z coordinate of centre in frame rot.
func axial(rot geom.Matrix3, centre *geom.Vector3) float64 {
	if centre == nil {
		return 0
	}
	return rot.Transpose().MulVec(*centre).Z
}

// halfSpace clips the half-space local z < v of frame rot to a box of
// lateral size length. The box reaches at least length below v and covers
// the extent centred at centre. anchor fixes the lateral position when no
// extent is known.
func halfSpace(rot geom.Matrix3, v float64, centre, anchor *geom.Vector3, length float64) (solid.Shape, geom.Transform, error) {
	var c geom.Vector3
	switch {
	case centre != nil:
		c = rot.Transpose().MulVec(*centre)
	case anchor != nil:
		c = rot.Transpose().MulVec(*anchor)
		c.Z = v
	default:
		c.Z = v
	}
	lo := math.Min(c.Z-length/2, v-length)
	size := geom.Vec(length, length, v-lo)
	mid := geom.Vec(c.X, c.Y, (lo+v)/2)
	return solid.Box{Size: size}, placedAt(rot, rot.MulVec(mid)), nil
}

// wedgeFaces index the vertices V, V+H1, V+H2, V+H3, V+H1+H3, V+H2+H3.
var wedgeFaces = [][]int{{0, 2, 1}, {3, 4, 5}, {0, 1, 4, 3}, {0, 3, 5, 2}, {1, 2, 5, 4}}

func wedgeVertices(d Wedge) []geom.Vector3 {
	return []geom.Vector3{
		d.V,
		d.V.Add(d.H1),
		d.V.Add(d.H2),
		d.V.Add(d.H3),
		d.V.Add(d.H1).Add(d.H3),
		d.V.Add(d.H2).Add(d.H3),
	}
}

func wedgePolyhedron(d Wedge) (solid.Polyhedron, error) {
	poly, err := solid.NewPolyhedron(wedgeVertices(d), wedgeFaces)
	if err != nil {
		return solid.Polyhedron{}, err
	}
	if poly.SignedVolume() < 0 {
		poly = poly.Reversed()
	}
	return poly, nil
}

func arbPolyhedron(d ARB) (solid.Polyhedron, error) {
	faces := make([][]int, 0, len(d.Faces))
	for _, f := range d.Faces {
		face := make([]int, 0, 4)
		for _, idx := range f {
			if idx != 0 {
				face = append(face, idx-1)
			}
		}
		if len(face) > 0 {
			faces = append(faces, face)
		}
	}
	poly, err := solid.NewPolyhedron(d.Vertices[:], faces)
	if err != nil {
		return solid.Polyhedron{}, err
	}
	poly.Shift = d.Shift
	return poly, nil
}
