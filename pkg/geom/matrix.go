package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix3 is a row-major 3x3 matrix, used for rotations.
type Matrix3 [3][3]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Matrix3 {
	return Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// FromColumns builds a matrix whose columns are a, b and c.
func FromColumns(a, b, c Vector3) Matrix3 {
	return Matrix3{
		{a.X, b.X, c.X},
		{a.Y, b.Y, c.Y},
		{a.Z, b.Z, c.Z},
	}
}

// Column returns the i-th column.
func (m Matrix3) Column(i int) Vector3 {
	return Vector3{m[0][i], m[1][i], m[2][i]}
}

// MulVec returns m * v.
func (m Matrix3) MulVec(v Vector3) Vector3 {
	return Vector3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mul returns m * n.
func (m Matrix3) Mul(n Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return r
}

// Transpose returns the transpose of m.
func (m Matrix3) Transpose() Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

func (m Matrix3) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

func fromDense(d mat.Matrix) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = d.At(i, j)
		}
	}
	return r
}

// Det returns the determinant of m.
func (m Matrix3) Det() float64 {
	return mat.Det(m.dense())
}

// Inverse returns the inverse of m, or an error if m is singular.
func (m Matrix3) Inverse() (Matrix3, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.dense()); err != nil {
		return Matrix3{}, fmt.Errorf("geom: matrix not invertible: %w", err)
	}
	return fromDense(&inv), nil
}

// IsRotation reports whether m is a proper rotation (orthonormal with
// determinant +1) within tol.
func (m Matrix3) IsRotation(tol float64) bool {
	d := m.dense()
	var p mat.Dense
	p.Mul(d, d.T())
	eye := mat.NewDiagDense(3, []float64{1, 1, 1})
	if !mat.EqualApprox(&p, eye, tol) {
		return false
	}
	return math.Abs(mat.Det(d)-1) <= tol
}

// RotateX returns the rotation by angle a (radians) about the X axis.
func RotateX(a float64) Matrix3 {
	s, c := math.Sincos(a)
	return Matrix3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

// RotateY returns the rotation by angle a (radians) about the Y axis.
func RotateY(a float64) Matrix3 {
	s, c := math.Sincos(a)
	return Matrix3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

// RotateZ returns the rotation by angle a (radians) about the Z axis.
func RotateZ(a float64) Matrix3 {
	s, c := math.Sincos(a)
	return Matrix3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// EulerZYX returns the rotation Rz(z) * Ry(y) * Rx(x). Angles are in radians.
func EulerZYX(x, y, z float64) Matrix3 {
	return RotateZ(z).Mul(RotateY(y)).Mul(RotateX(x))
}

// EulerAngles decomposes a rotation into the angles accepted by EulerZYX.
func (m Matrix3) EulerAngles() (x, y, z float64) {
	sy := -m[2][0]
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y = math.Asin(sy)
	if math.Abs(math.Cos(y)) > 1e-9 {
		x = math.Atan2(m[2][1], m[2][2])
		z = math.Atan2(m[1][0], m[0][0])
		return x, y, z
	}
	// Gimbal lock: only x - z (or x + z) is determined.
	return 0, y, math.Atan2(-m[0][1], m[1][1])
}

// AlignZ returns a rotation that maps the local +Z axis onto dir. The
// remaining freedom (spin about dir) is fixed deterministically.
func AlignZ(dir Vector3) Matrix3 {
	w, ok := dir.Normalize()
	if !ok {
		return Identity3()
	}
	ref := UnitX
	if math.Abs(w.X) > 0.9 {
		ref = UnitY
	}
	u, _ := ref.Sub(w.Scale(ref.Dot(w))).Normalize()
	v := w.Cross(u)
	return FromColumns(u, v, w)
}
