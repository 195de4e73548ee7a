package geom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Plane is the set of points p with Normal . p == Offset. Normal is unit
// length and points to the outside of the half-space Normal . p <= Offset.
type Plane struct {
	Normal Vector3
	Offset float64
}

// NewPlane builds the plane through point with the given outward normal.
func NewPlane(normal, point Vector3) (Plane, error) {
	n, ok := normal.Normalize()
	if !ok {
		return Plane{}, fmt.Errorf("geom: plane normal is zero")
	}
	return Plane{Normal: n, Offset: n.Dot(point)}, nil
}

// PlaneThrough builds the plane through a, b, c. The normal follows the
// right-hand rule over a -> b -> c.
func PlaneThrough(a, b, c Vector3) (Plane, error) {
	n := b.Sub(a).Cross(c.Sub(a))
	if _, ok := n.Normalize(); !ok {
		return Plane{}, fmt.Errorf("geom: points %v %v %v are collinear", a, b, c)
	}
	return NewPlane(n, a)
}

// SignedDistance is negative inside the half-space, positive outside.
func (p Plane) SignedDistance(x Vector3) float64 {
	return p.Normal.Dot(x) - p.Offset
}

// Shifted moves the plane by delta along its normal.
func (p Plane) Shifted(delta float64) Plane {
	return Plane{Normal: p.Normal, Offset: p.Offset + delta}
}

// Flipped returns the complementary half-space boundary.
func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Neg(), Offset: -p.Offset}
}

// Transformed maps the plane through t.
func (p Plane) Transformed(t Transform) Plane {
	n := t.ApplyVector(p.Normal)
	return Plane{Normal: n, Offset: n.Dot(t.Apply(p.Normal.Scale(p.Offset)))}
}

// IntersectPlanes returns the single point shared by three planes.
func IntersectPlanes(a, b, c Plane) (Vector3, error) {
	m := Matrix3{
		{a.Normal.X, a.Normal.Y, a.Normal.Z},
		{b.Normal.X, b.Normal.Y, b.Normal.Z},
		{c.Normal.X, c.Normal.Y, c.Normal.Z},
	}
	inv, err := m.Inverse()
	if err != nil {
		return Vector3{}, fmt.Errorf("geom: planes do not meet in a point: %w", err)
	}
	return inv.MulVec(Vector3{a.Offset, b.Offset, c.Offset}), nil
}

// MeetPlanes returns the point closest, in the least-squares sense, to
// every plane. It needs at least three planes whose normals span space.
func MeetPlanes(planes []Plane) (Vector3, error) {
	if len(planes) < 3 {
		return Vector3{}, fmt.Errorf("geom: %d planes cannot fix a point", len(planes))
	}
	a := mat.NewDense(len(planes), 3, nil)
	b := mat.NewVecDense(len(planes), nil)
	for i, p := range planes {
		a.SetRow(i, []float64{p.Normal.X, p.Normal.Y, p.Normal.Z})
		b.SetVec(i, p.Offset)
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return Vector3{}, fmt.Errorf("geom: plane system did not factorize")
	}
	if rank := svd.Rank(1e-12); rank < 3 {
		return Vector3{}, fmt.Errorf("geom: plane normals span %d dimensions, want 3", rank)
	}
	var x mat.VecDense
	svd.SolveVecTo(&x, b, 3)
	return Vector3{x.AtVec(0), x.AtVec(1), x.AtVec(2)}, nil
}
