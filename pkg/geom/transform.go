package geom

import (
	"fmt"
	"math"
)

// rotationTolerance bounds the deviation from orthonormality accepted for
// user-supplied rotations.
const rotationTolerance = 1e-9

// Transform is a rototranslation: p' = Rotation * p + Translation.
type Transform struct {
	Rotation    Matrix3
	Translation Vector3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: Identity3()}
}

// Translation returns a pure translation by v.
func Translation(v Vector3) Transform {
	return Transform{Rotation: Identity3(), Translation: v}
}

// Rotation returns a pure rotation.
func Rotation(r Matrix3) Transform {
	return Transform{Rotation: r}
}

// NewTransform validates that rot is a proper rotation and returns the
// rototranslation (rot, trans).
func NewTransform(rot Matrix3, trans Vector3) (Transform, error) {
	if !rot.IsRotation(rotationTolerance) {
		return Transform{}, fmt.Errorf("geom: matrix %v is not a proper rotation", rot)
	}
	return Transform{Rotation: rot, Translation: trans}, nil
}

// FromEulerDegrees builds a transform from a translation and ZYX Euler
// angles given in degrees.
func FromEulerDegrees(trans Vector3, x, y, z float64) Transform {
	const deg = math.Pi / 180
	return Transform{Rotation: EulerZYX(x*deg, y*deg, z*deg), Translation: trans}
}

// Apply maps point p through the transform.
func (t Transform) Apply(p Vector3) Vector3 {
	return t.Rotation.MulVec(p).Add(t.Translation)
}

// ApplyVector rotates direction v (translation is ignored).
func (t Transform) ApplyVector(v Vector3) Vector3 {
	return t.Rotation.MulVec(v)
}

// Compose returns the transform that applies inner first, then t.
func (t Transform) Compose(inner Transform) Transform {
	return Transform{
		Rotation:    t.Rotation.Mul(inner.Rotation),
		Translation: t.Rotation.MulVec(inner.Translation).Add(t.Translation),
	}
}

// Inverse returns the inverse rototranslation. Rotations are orthonormal,
// so the inverse rotation is the transpose.
func (t Transform) Inverse() Transform {
	rt := t.Rotation.Transpose()
	return Transform{Rotation: rt, Translation: rt.MulVec(t.Translation).Neg()}
}

// IsIdentity reports whether t is the identity within a small tolerance.
func (t Transform) IsIdentity() bool {
	if !t.Translation.ApproxEqual(Vector3{}, 1e-12) {
		return false
	}
	id := Identity3()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(t.Rotation[i][j]-id[i][j]) > 1e-12 {
				return false
			}
		}
	}
	return true
}

func (t Transform) String() string {
	x, y, z := t.Rotation.EulerAngles()
	const deg = 180 / math.Pi
	return fmt.Sprintf("translate%v rotate(%g, %g, %g)deg", t.Translation, x*deg, y*deg, z*deg)
}
