// Package geometry is the analytic-geometry kernel used by the coverage
// engine: vectors, lines, planes, rotations and canonical ellipsoids.
//
// All types are immutable values. Operations that can degenerate return
// one of the sentinel errors below instead of NaN or Inf results.
package geometry

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"
)

var (
	// ErrDegenerateVector is returned when a zero-length vector would have
	// to be normalised or used as a direction.
	ErrDegenerateVector = errors.New("degenerate vector")
	// ErrNoLinePlaneIntersection indicates the line is parallel to the plane.
	ErrNoLinePlaneIntersection = errors.New("line is parallel to plane")
	// ErrParallelPlanes indicates two planes have no unique intersection line.
	ErrParallelPlanes = errors.New("planes are parallel")
	// ErrDegeneratePlane indicates collinear points or lines spanning no plane.
	ErrDegeneratePlane = errors.New("degenerate plane")
	// ErrNoIntersection indicates a line misses an ellipsoid.
	ErrNoIntersection = errors.New("line does not intersect ellipsoid")
)

// relTolerance scales parallelism and collinearity checks by the magnitude
// of the participating vectors.
const relTolerance = 1e-12

// Vector3 is a Cartesian vector. The zero value is the origin.
type Vector3 struct {
	X, Y, Z float64
}

// Vec is shorthand for constructing a Vector3.
func Vec(x, y, z float64) Vector3 { return Vector3{X: x, Y: y, Z: z} }

func (v Vector3) r3() r3.Vector { return r3.Vector(v) }

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 { return Vector3(v.r3().Add(o.r3())) }

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3(v.r3().Sub(o.r3())) }

// Neg returns -v.
func (v Vector3) Neg() Vector3 { return Vector3{X: -v.X, Y: -v.Y, Z: -v.Z} }

// Scale returns k·v.
func (v Vector3) Scale(k float64) Vector3 { return Vector3(v.r3().Mul(k)) }

// Dot returns the scalar product.
func (v Vector3) Dot(o Vector3) float64 { return v.r3().Dot(o.r3()) }

// Cross returns the vector product v × o.
func (v Vector3) Cross(o Vector3) Vector3 { return Vector3(v.r3().Cross(o.r3())) }

// Triple returns the scalar triple product v · (a × b).
func (v Vector3) Triple(a, b Vector3) float64 { return v.Dot(a.Cross(b)) }

// Norm returns the Euclidean length.
func (v Vector3) Norm() float64 { return v.r3().Norm() }

// Distance returns the Euclidean distance between two points.
func (v Vector3) Distance(o Vector3) float64 { return v.r3().Distance(o.r3()) }

// Normalize returns the unit vector in the direction of v.
func (v Vector3) Normalize() (Vector3, error) {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Vector3{}, ErrDegenerateVector
	}
	return v.Scale(1 / n), nil
}

// IsZero reports whether all components are exactly zero.
func (v Vector3) IsZero() bool { return v == Vector3{} }

// ApproxEqual reports whether v and o differ by at most tol in every component.
func (v Vector3) ApproxEqual(o Vector3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

// nearlyZero reports whether x is negligible relative to scale.
func nearlyZero(x, scale float64) bool {
	return math.Abs(x) <= relTolerance*scale
}
