package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Line is the set of points Point + t·Direction.
type Line struct {
	Point     Vector3
	Direction Vector3
}

// At returns the point at parameter t.
func (l Line) At(t float64) Vector3 { return l.Point.Add(l.Direction.Scale(t)) }

// Plane is the set of points p with Normal·p + D = 0.
type Plane struct {
	Normal Vector3
	D      float64
}

// Eval returns Normal·p + D; zero for points on the plane.
func (p Plane) Eval(q Vector3) float64 { return p.Normal.Dot(q) + p.D }

// PlaneFromPoints returns the plane through three points. Collinear points
// span no plane and yield ErrDegeneratePlane.
func PlaneFromPoints(p1, p2, p3 Vector3) (Plane, error) {
	e1, e2 := p2.Sub(p1), p3.Sub(p1)
	n := e1.Cross(e2)
	if nearlyZero(n.Norm(), e1.Norm()*e2.Norm()) {
		return Plane{}, ErrDegeneratePlane
	}
	return Plane{Normal: n, D: -n.Dot(p1)}, nil
}

// PlaneFromLines returns the plane containing two coplanar lines. Skew
// lines and a pair of coincident lines yield ErrDegeneratePlane.
func PlaneFromLines(l1, l2 Line) (Plane, error) {
	d1, d2 := l1.Direction, l2.Direction
	if d1.IsZero() || d2.IsZero() {
		return Plane{}, ErrDegenerateVector
	}
	n := d1.Cross(d2)
	if nearlyZero(n.Norm(), d1.Norm()*d2.Norm()) {
		// parallel: the offset between the lines supplies the second edge
		return PlaneFromPoints(l1.Point, l1.At(1), l2.Point)
	}
	offset := l2.Point.Sub(l1.Point)
	if !nearlyZero(offset.Dot(n), 1e3*offset.Norm()*n.Norm()) {
		return Plane{}, ErrDegeneratePlane
	}
	return Plane{Normal: n, D: -n.Dot(l1.Point)}, nil
}

// IntersectLinePlane returns the point where l crosses p, or
// ErrNoLinePlaneIntersection when l is parallel to p.
func IntersectLinePlane(l Line, p Plane) (Vector3, error) {
	denom := l.Direction.Dot(p.Normal)
	if nearlyZero(denom, l.Direction.Norm()*p.Normal.Norm()) {
		return Vector3{}, ErrNoLinePlaneIntersection
	}
	t := -p.Eval(l.Point) / denom
	return l.At(t), nil
}

// IntersectLinePlaneOrProject behaves like IntersectLinePlane but, when l is
// parallel to p, returns the orthogonal projection of l.Point onto p.
func IntersectLinePlaneOrProject(l Line, p Plane) (Vector3, error) {
	q, err := IntersectLinePlane(l, p)
	if err == nil {
		return q, nil
	}
	if p.Normal.IsZero() {
		return Vector3{}, ErrDegenerateVector
	}
	return IntersectLinePlane(Line{Point: l.Point, Direction: p.Normal}, p)
}

// IntersectPlanes returns the line shared by two planes. A point on the line
// is found by restricting both plane equations to z=0 and solving the 2x2
// system; when that system is singular the y=0 and then x=0 restrictions
// are used. ErrParallelPlanes is returned only when the normals are parallel.
func IntersectPlanes(p1, p2 Plane) (Line, error) {
	n1, n2 := p1.Normal, p2.Normal
	dir := n1.Cross(n2)
	if nearlyZero(dir.Norm(), n1.Norm()*n2.Norm()) {
		return Line{}, ErrParallelPlanes
	}
	rhs := mat.NewVecDense(2, []float64{-p1.D, -p2.D})

	// det of each restricted system equals the matching component of dir.
	type restriction struct {
		det   float64
		a     []float64
		place func(u, v float64) Vector3
	}
	tries := []restriction{
		{dir.Z, []float64{n1.X, n1.Y, n2.X, n2.Y}, func(u, v float64) Vector3 { return Vec(u, v, 0) }},
		{dir.Y, []float64{n1.X, n1.Z, n2.X, n2.Z}, func(u, v float64) Vector3 { return Vec(u, 0, v) }},
		{dir.X, []float64{n1.Y, n1.Z, n2.Y, n2.Z}, func(u, v float64) Vector3 { return Vec(0, u, v) }},
	}
	scale := dir.Norm()
	for _, r := range tries {
		if math.Abs(r.det) <= 1e-9*scale {
			continue
		}
		var x mat.VecDense
		if err := x.SolveVec(mat.NewDense(2, 2, r.a), rhs); err != nil {
			continue
		}
		return Line{Point: r.place(x.AtVec(0), x.AtVec(1)), Direction: dir}, nil
	}
	return Line{}, fmt.Errorf("%w: no solvable coordinate restriction", ErrParallelPlanes)
}

// ProjectLine returns the orthogonal projection of l onto p. A line
// perpendicular to p projects to a single point and yields an error.
func ProjectLine(l Line, p Plane) (Line, error) {
	foot, err := IntersectLinePlaneOrProject(l, p)
	if err != nil {
		return Line{}, err
	}
	perp, err := PlaneFromLines(l, Line{Point: foot, Direction: p.Normal})
	if err != nil {
		return Line{}, err
	}
	return IntersectPlanes(p, perp)
}
