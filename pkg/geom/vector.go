package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Vector3 is a point or direction in 3D space.
type Vector3 struct {
	X, Y, Z float64
}

// Vec is shorthand for Vector3{X: x, Y: y, Z: z}.
func Vec(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Unit vectors along the coordinate axes.
var (
	UnitX = Vector3{X: 1}
	UnitY = Vector3{Y: 1}
	UnitZ = Vector3{Z: 1}
)

// Add returns v + w.
func (v Vector3) Add(w Vector3) Vector3 {
	return Vector3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns v * k.
func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{v.X * k, v.Y * k, v.Z * k}
}

// Neg returns -v.
func (v Vector3) Neg() Vector3 {
	return Vector3{-v.X, -v.Y, -v.Z}
}

// Dot returns the scalar product v . w.
func (v Vector3) Dot(w Vector3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the vector product v x w.
func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the Euclidean norm of v.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. A zero vector is returned
// unchanged with ok == false.
func (v Vector3) Normalize() (u Vector3, ok bool) {
	l := v.Length()
	if l == 0 {
		return v, false
	}
	return v.Scale(1 / l), true
}

// Min returns the componentwise minimum of v and w.
func (v Vector3) Min(w Vector3) Vector3 {
	return Vector3{math.Min(v.X, w.X), math.Min(v.Y, w.Y), math.Min(v.Z, w.Z)}
}

// Max returns the componentwise maximum of v and w.
func (v Vector3) Max(w Vector3) Vector3 {
	return Vector3{math.Max(v.X, w.X), math.Max(v.Y, w.Y), math.Max(v.Z, w.Z)}
}

// MaxComponent returns the largest of X, Y and Z.
func (v Vector3) MaxComponent() float64 {
	return math.Max(v.X, math.Max(v.Y, v.Z))
}

// Component returns the i-th component (0=X, 1=Y, 2=Z).
func (v Vector3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	panic(fmt.Sprintf("geom: vector component %d out of range", i))
}

// IsZero reports whether all components are exactly zero.
func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// ApproxEqual reports whether v and w agree componentwise within tol.
func (v Vector3) ApproxEqual(w Vector3, tol float64) bool {
	return scalar.EqualWithinAbs(v.X, w.X, tol) &&
		scalar.EqualWithinAbs(v.Y, w.Y, tol) &&
		scalar.EqualWithinAbs(v.Z, w.Z, tol)
}

// Perpendicular reports whether v and w are perpendicular within a
// relative tolerance on the cosine of the angle between them.
func Perpendicular(v, w Vector3, tol float64) bool {
	lv, lw := v.Length(), w.Length()
	if lv == 0 || lw == 0 {
		return false
	}
	return math.Abs(v.Dot(w))/(lv*lw) <= tol
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
