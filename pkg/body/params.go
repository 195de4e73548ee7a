package body

import (
	"fmt"
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
)

// perpendicularTolerance bounds |cos| between edges that must be
// perpendicular.
const perpendicularTolerance = 1e-6

// Params is the closed set of kind-specific body parameters.
type Params interface {
	params()
}

// Axis selects a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	if !validAxis(a) {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return [...]string{"X", "Y", "Z"}[a]
}

// ---------------------------------------------------------------------------
// Finite bodies
// ---------------------------------------------------------------------------

// RPP is an axis-aligned box.
type RPP struct {
	Min geom.Vector3
	Max geom.Vector3
}

func (RPP) params() {}

// Box is a general box with vertex V and mutually perpendicular edges.
type Box struct {
	V          geom.Vector3
	H1, H2, H3 geom.Vector3
}

func (Box) params() {}

// Sphere is a ball.
type Sphere struct {
	Centre geom.Vector3
	Radius float64
}

func (Sphere) params() {}

// RCC is a right circular cylinder from base centre V along height H.
type RCC struct {
	V      geom.Vector3
	H      geom.Vector3
	Radius float64
}

func (RCC) params() {}

// REC is a right elliptical cylinder. R1 and R2 are the semi-axis vectors,
// perpendicular to H and to each other.
type REC struct {
	V      geom.Vector3
	H      geom.Vector3
	R1, R2 geom.Vector3
}

func (REC) params() {}

// TRC is a truncated right circular cone with base radius R1 at V and top
// radius R2 at V+H.
type TRC struct {
	V      geom.Vector3
	H      geom.Vector3
	R1, R2 float64
}

func (TRC) params() {}

// Ellipsoid is an ellipsoid of revolution around the focal axis. Length is
// the full major axis length.
type Ellipsoid struct {
	F1, F2 geom.Vector3
	Length float64
}

func (Ellipsoid) params() {}

// Wedge is a right-angle wedge. The right-angled triangle is spanned by H1
// and H2 at V and extruded along H3. WED and RAW share it.
type Wedge struct {
	V          geom.Vector3
	H1, H2, H3 geom.Vector3
}

func (Wedge) params() {}

// ARB is an arbitrary convex polyhedron with up to eight vertices and six
// faces. Faces hold one-based vertex indices; zeros pad three-vertex faces
// and an all-zero face is unused. Shift moves every face plane outward and
// is only set by length-safety variants.
type ARB struct {
	Vertices [8]geom.Vector3
	Faces    [6][4]int
	Shift    float64
}

// minARBFaces is the least number of faces that can close a polyhedron.
const minARBFaces = 4

func (ARB) params() {}

// ---------------------------------------------------------------------------
// Infinite bodies
// ---------------------------------------------------------------------------

// AxisPlane is the half-space where the Axis coordinate is below Value
// (XYP: z < v, XZP: y < v, YZP: x < v).
type AxisPlane struct {
	Axis  Axis
	Value float64
}

func (AxisPlane) params() {}

// Plane is the half-space n.(p - Point) < 0.
type Plane struct {
	Normal geom.Vector3
	Point  geom.Vector3
}

func (Plane) params() {}

// AxisCylinder is an infinite circular cylinder parallel to Axis. A and B
// are the centre coordinates on the two remaining axes in cyclic order
// (XCC: y, z; YCC: z, x; ZCC: x, y).
type AxisCylinder struct {
	Axis   Axis
	A, B   float64
	Radius float64
}

func (AxisCylinder) params() {}

// AxisEllipticalCylinder is an infinite elliptical cylinder parallel to
// Axis, with centre (A, B) and semi-axes (SemiA, SemiB) in the same cyclic
// order as AxisCylinder.
type AxisEllipticalCylinder struct {
	Axis         Axis
	A, B         float64
	SemiA, SemiB float64
}

func (AxisEllipticalCylinder) params() {}

// Quadric is the region F < 0 with coefficients ordered
// xx, yy, zz, xy, xz, yz, x, y, z, 1. Shift carries length-safety offsets.
type Quadric struct {
	Coeffs [10]float64
	Shift  float64
}

func (Quadric) params() {}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func kindOf(p Params) Kind {
	switch d := p.(type) {
	case RPP:
		return KindRPP
	case Box:
		return KindBOX
	case Sphere:
		return KindSPH
	case RCC:
		return KindRCC
	case REC:
		return KindREC
	case TRC:
		return KindTRC
	case Ellipsoid:
		return KindELL
	case Wedge:
		return KindWED
	case ARB:
		return KindARB
	case AxisPlane:
		return axisKind(d.Axis, KindYZP, KindXZP, KindXYP)
	case Plane:
		return KindPLA
	case AxisCylinder:
		return axisKind(d.Axis, KindXCC, KindYCC, KindZCC)
	case AxisEllipticalCylinder:
		return axisKind(d.Axis, KindXEC, KindYEC, KindZEC)
	case Quadric:
		return KindQUA
	}
	return -1
}

func axisKind(a Axis, x, y, z Kind) Kind {
	if !validAxis(a) {
		return -1
	}
	return [...]Kind{x, y, z}[a]
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func mutuallyPerpendicular(vs ...geom.Vector3) string {
	for i, v := range vs {
		if v.IsZero() {
			return fmt.Sprintf("edge %d has zero length", i+1)
		}
	}
	for i := 0; i < len(vs); i++ {
		for j := i + 1; j < len(vs); j++ {
			if !geom.Perpendicular(vs[i], vs[j], perpendicularTolerance) {
				return fmt.Sprintf("edges %d and %d are not perpendicular", i+1, j+1)
			}
		}
	}
	return ""
}

func validAxis(a Axis) bool { return a >= AxisX && a <= AxisZ }

// validate returns a non-empty reason when p is malformed.
func validate(p Params) string {
	switch d := p.(type) {
	case RPP:
		if d.Min.X >= d.Max.X || d.Min.Y >= d.Max.Y || d.Min.Z >= d.Max.Z {
			return fmt.Sprintf("min %v is not below max %v on every axis", d.Min, d.Max)
		}
	case Box:
		return mutuallyPerpendicular(d.H1, d.H2, d.H3)
	case Sphere:
		if !(d.Radius > 0) {
			return fmt.Sprintf("radius %g must be positive", d.Radius)
		}
	case RCC:
		if d.H.IsZero() {
			return "height vector has zero length"
		}
		if !(d.Radius > 0) {
			return fmt.Sprintf("radius %g must be positive", d.Radius)
		}
	case REC:
		return mutuallyPerpendicular(d.H, d.R1, d.R2)
	case TRC:
		if d.H.IsZero() {
			return "height vector has zero length"
		}
		if d.R1 < 0 || d.R2 < 0 || (d.R1 == 0 && d.R2 == 0) {
			return fmt.Sprintf("radii %g, %g must be non-negative and not both zero", d.R1, d.R2)
		}
	case Ellipsoid:
		c := d.F2.Sub(d.F1).Length() / 2
		if !(d.Length > 0) {
			return fmt.Sprintf("major axis length %g must be positive", d.Length)
		}
		if d.Length/2 <= c {
			return fmt.Sprintf("semi-major axis %g does not exceed linear eccentricity %g", d.Length/2, c)
		}
	case Wedge:
		return mutuallyPerpendicular(d.H1, d.H2, d.H3)
	case ARB:
		used := 0
		for i, f := range d.Faces {
			n := 0
			for _, idx := range f {
				if idx < 0 || idx > 8 {
					return fmt.Sprintf("face %d references vertex %d, want 1..8", i+1, idx)
				}
				if idx != 0 {
					n++
				}
			}
			switch {
			case n == 0:
				continue
			case n < 3:
				return fmt.Sprintf("face %d has %d vertices, want 3 or 4", i+1, n)
			}
			used++
		}
		if used < minARBFaces {
			return fmt.Sprintf("ARB has %d faces, want at least %d", used, minARBFaces)
		}
		if !finite(d.Shift) {
			return "invalid face shift"
		}
	case AxisPlane:
		if !validAxis(d.Axis) || !finite(d.Value) {
			return "invalid axis plane"
		}
	case Plane:
		if d.Normal.IsZero() {
			return "plane normal has zero length"
		}
	case AxisCylinder:
		if !validAxis(d.Axis) {
			return "invalid cylinder axis"
		}
		if !(d.Radius > 0) {
			return fmt.Sprintf("radius %g must be positive", d.Radius)
		}
	case AxisEllipticalCylinder:
		if !validAxis(d.Axis) {
			return "invalid cylinder axis"
		}
		if !(d.SemiA > 0 && d.SemiB > 0) {
			return fmt.Sprintf("semi-axes %g, %g must be positive", d.SemiA, d.SemiB)
		}
	case Quadric:
		zero := true
		for _, c := range d.Coeffs[:9] {
			if c != 0 {
				zero = false
			}
		}
		if zero {
			return "quadric has no non-constant terms"
		}
	case nil:
		return "missing parameters"
	default:
		return fmt.Sprintf("unknown parameters %T", p)
	}
	return ""
}

// NewARB builds ARB parameters from slices, checking the vertex and face
// counts. Empty faces, and faces beyond the last one given, are unused.
func NewARB(name string, vertices []geom.Vector3, faces [][]int) (ARB, error) {
	var a ARB
	if len(vertices) != 8 {
		return a, constraint(name, fmt.Sprintf("ARB needs 8 vertices, got %d", len(vertices)))
	}
	if len(faces) > 6 {
		return a, constraint(name, fmt.Sprintf("ARB takes at most 6 faces, got %d", len(faces)))
	}
	copy(a.Vertices[:], vertices)
	for i, f := range faces {
		if len(f) > 4 {
			return a, constraint(name, fmt.Sprintf("face %d has %d indices, want at most 4", i+1, len(f)))
		}
		copy(a.Faces[i][:], f)
	}
	if reason := validate(a); reason != "" {
		return a, constraint(name, reason)
	}
	return a, nil
}
