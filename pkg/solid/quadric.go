package solid

import (
	"math"

	"github.com/chazu/zonecsg/pkg/geom"
)

// quadricSamples is the per-axis sample count of the volume estimate.
const quadricSamples = 64

// Quadric is the region F(p) < 0 of a general quadric surface, clipped to
// Bounds. Coefficients are ordered xx, yy, zz, xy, xz, yz, x, y, z, 1.
//
// Shift offsets the surface using the first-order distance F/|grad F|: a
// point is inside when F(p)/|grad F(p)| < Shift.
type Quadric struct {
	Coeffs [10]float64
	Bounds geom.Extent
	Shift  float64
}

// Value returns F(p).
func (q Quadric) Value(p geom.Vector3) float64 {
	c := q.Coeffs
	return c[0]*p.X*p.X + c[1]*p.Y*p.Y + c[2]*p.Z*p.Z +
		c[3]*p.X*p.Y + c[4]*p.X*p.Z + c[5]*p.Y*p.Z +
		c[6]*p.X + c[7]*p.Y + c[8]*p.Z + c[9]
}

// Gradient returns grad F(p).
func (q Quadric) Gradient(p geom.Vector3) geom.Vector3 {
	c := q.Coeffs
	return geom.Vector3{
		X: 2*c[0]*p.X + c[3]*p.Y + c[4]*p.Z + c[6],
		Y: 2*c[1]*p.Y + c[3]*p.X + c[5]*p.Z + c[7],
		Z: 2*c[2]*p.Z + c[4]*p.X + c[5]*p.Y + c[8],
	}
}

// Distance approximates the signed distance to the shifted surface,
// ignoring the clipping box.
func (q Quadric) Distance(p geom.Vector3) float64 {
	f := q.Value(p)
	g := q.Gradient(p).Length()
	if g < 1e-12 {
		if f < 0 {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	return f/g - q.Shift
}

// Inside reports whether p lies in the clipped region.
func (q Quadric) Inside(p geom.Vector3) bool {
	return q.Bounds.ContainsPoint(p) && q.Distance(p) < 0
}

// Volume estimates the clipped volume by midpoint sampling.
func (q Quadric) Volume() float64 {
	size := q.Bounds.Size()
	step := size.Scale(1.0 / quadricSamples)
	n := 0
	for i := 0; i < quadricSamples; i++ {
		for j := 0; j < quadricSamples; j++ {
			for k := 0; k < quadricSamples; k++ {
				p := q.Bounds.Lower.Add(geom.Vec(
					(float64(i)+0.5)*step.X,
					(float64(j)+0.5)*step.Y,
					(float64(k)+0.5)*step.Z,
				))
				if q.Distance(p) < 0 {
					n++
				}
			}
		}
	}
	return q.Bounds.Volume() * float64(n) / (quadricSamples * quadricSamples * quadricSamples)
}

func (q Quadric) Extent() geom.Extent { return q.Bounds }

// Offset shifts the surface and grows the clipping box by delta.
func (q Quadric) Offset(delta float64) (Shape, error) {
	b, err := geom.NewExtent(
		q.Bounds.Lower.Sub(geom.Vec(delta, delta, delta)),
		q.Bounds.Upper.Add(geom.Vec(delta, delta, delta)),
	)
	if err != nil {
		return nil, ErrCollapsed
	}
	return Quadric{Coeffs: q.Coeffs, Bounds: b, Shift: q.Shift + delta}, nil
}
