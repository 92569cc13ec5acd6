package geometry

import "math"

// Ellipsoid is an origin-centred ellipsoid with semi-axes A, B, C along
// x, y and z. Earth models use A == B.
type Ellipsoid struct {
	A, B, C float64
}

// Implicit returns (x/A)² + (y/B)² + (z/C)² - 1, which is zero on the surface.
func (e Ellipsoid) Implicit(p Vector3) float64 {
	x, y, z := p.X/e.A, p.Y/e.B, p.Z/e.C
	return x*x + y*y + z*z - 1
}

// Intersect solves |l.At(t)| = surface for t and returns both crossing
// points ordered by increasing t. A tangent line returns the same point
// twice. ErrNoIntersection is returned when the line misses.
func (e Ellipsoid) Intersect(l Line) (Vector3, Vector3, error) {
	d, p := l.Direction, l.Point
	a2, b2, c2 := e.A*e.A, e.B*e.B, e.C*e.C
	qa := d.X*d.X/a2 + d.Y*d.Y/b2 + d.Z*d.Z/c2
	if qa == 0 {
		return Vector3{}, Vector3{}, ErrDegenerateVector
	}
	qb := 2 * (p.X*d.X/a2 + p.Y*d.Y/b2 + p.Z*d.Z/c2)
	qc := p.X*p.X/a2 + p.Y*p.Y/b2 + p.Z*p.Z/c2 - 1
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return Vector3{}, Vector3{}, ErrNoIntersection
	}
	sq := math.Sqrt(disc)
	// numerically stable pairing of the two roots
	var q float64
	if qb >= 0 {
		q = -0.5 * (qb + sq)
	} else {
		q = -0.5 * (qb - sq)
	}
	var t1, t2 float64
	if q == 0 {
		t1, t2 = 0, 0
	} else {
		t1, t2 = q/qa, qc/q
	}
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return l.At(t1), l.At(t2), nil
}

// NearestIntersection returns the crossing point of l closest to ref.
// Ties resolve to the smaller line parameter.
func (e Ellipsoid) NearestIntersection(l Line, ref Vector3) (Vector3, error) {
	p1, p2, err := e.Intersect(l)
	if err != nil {
		return Vector3{}, err
	}
	if p2.Distance(ref) < p1.Distance(ref) {
		return p2, nil
	}
	return p1, nil
}

// TangentPlane returns the plane tangent to the ellipsoid at surface point p.
// For points off the surface the result is the polar plane of p, which is
// not a tangent plane.
func (e Ellipsoid) TangentPlane(p Vector3) Plane {
	n := Vector3{X: p.X / (e.A * e.A), Y: p.Y / (e.B * e.B), Z: p.Z / (e.C * e.C)}
	return Plane{Normal: n, D: -1}
}
