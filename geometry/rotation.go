package geometry

import (
	"math"

	"github.com/golang/geo/s1"
	"gonum.org/v1/gonum/mat"
)

// Rotation is a proper 3x3 rotation matrix about a unit axis.
type Rotation struct {
	m *mat.Dense
}

// NewRotation builds the Rodrigues rotation matrix for a right-handed turn
// of angle about axis. The axis is normalised first, so callers may pass
// any non-zero direction; a zero axis yields ErrDegenerateVector.
func NewRotation(axis Vector3, angle s1.Angle) (Rotation, error) {
	u, err := axis.Normalize()
	if err != nil {
		return Rotation{}, err
	}
	s, c := math.Sincos(angle.Radians())
	k := 1 - c
	return Rotation{m: mat.NewDense(3, 3, []float64{
		c + k*u.X*u.X, k*u.X*u.Y - s*u.Z, k*u.X*u.Z + s*u.Y,
		k*u.X*u.Y + s*u.Z, c + k*u.Y*u.Y, k*u.Y*u.Z - s*u.X,
		k*u.X*u.Z - s*u.Y, k*u.Y*u.Z + s*u.X, c + k*u.Z*u.Z,
	})}, nil
}

// At returns element (i, j) of the matrix.
func (r Rotation) At(i, j int) float64 { return r.m.At(i, j) }

// Apply returns the rotated vector R·v.
func (r Rotation) Apply(v Vector3) Vector3 {
	var out mat.VecDense
	out.MulVec(r.m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return Vector3{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Rotate turns v about axis by angle. See NewRotation for the axis contract.
func (v Vector3) Rotate(axis Vector3, angle s1.Angle) (Vector3, error) {
	r, err := NewRotation(axis, angle)
	if err != nil {
		return Vector3{}, err
	}
	return r.Apply(v), nil
}
