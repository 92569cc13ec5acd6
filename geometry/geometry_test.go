package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/s1"
	"gonum.org/v1/gonum/floats/scalar"
)

const wgsA, wgsC = 6378.137, 6356.75231424518

func TestNormalize_ZeroVector(t *testing.T) {
	if _, err := (Vector3{}).Normalize(); !errors.Is(err, ErrDegenerateVector) {
		t.Fatalf("Normalize(0) err = %v, want ErrDegenerateVector", err)
	}
	u, err := Vec(3, 0, 4).Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !scalar.EqualWithinAbs(u.Norm(), 1, 1e-15) || !scalar.EqualWithinAbs(u.X, 0.6, 1e-15) {
		t.Fatalf("Normalize(3,0,4) = %+v, want (0.6,0,0.8)", u)
	}
}

func TestTripleProduct(t *testing.T) {
	got := Vec(1, 0, 0).Triple(Vec(0, 1, 0), Vec(0, 0, 1))
	if got != 1 {
		t.Fatalf("triple(e1,e2,e3) = %v, want 1", got)
	}
	if got := Vec(1, 2, 3).Triple(Vec(1, 2, 3), Vec(4, 5, 6)); got != 0 {
		t.Fatalf("triple with repeated vector = %v, want 0", got)
	}
}

func TestRotation_IdentityAndFullTurn(t *testing.T) {
	vectors := []Vector3{Vec(1, 2, 3), Vec(-7000, 12, 0.5), Vec(0, 0, 1)}
	axes := []Vector3{Vec(0, 0, 1), Vec(1, 1, 0), Vec(-3, 2, 5)}
	for _, v := range vectors {
		for _, axis := range axes {
			for _, deg := range []float64{0, 360} {
				got, err := v.Rotate(axis, s1.Angle(deg)*s1.Degree)
				if err != nil {
					t.Fatalf("Rotate: %v", err)
				}
				if !got.ApproxEqual(v, 1e-9*math.Max(1, v.Norm())) {
					t.Errorf("Rotate(%+v, %+v, %v°) = %+v, want original", v, axis, deg, got)
				}
			}
		}
	}
}

func TestRotation_PreservesLengthForAnyAxisScale(t *testing.T) {
	v := Vec(1200, -340, 6500)
	// non-unit axes are normalised internally
	for _, axis := range []Vector3{Vec(0, 0, 10), Vec(0.001, 0.002, 0), Vec(5, -5, 5)} {
		for _, deg := range []float64{1, 17.5, 90, 181, -45} {
			got, err := v.Rotate(axis, s1.Angle(deg)*s1.Degree)
			if err != nil {
				t.Fatalf("Rotate: %v", err)
			}
			if !scalar.EqualWithinRel(got.Norm(), v.Norm(), 1e-12) {
				t.Errorf("|Rotate| = %v, want %v (axis %+v, %v°)", got.Norm(), v.Norm(), axis, deg)
			}
		}
	}
}

func TestRotation_QuarterTurnAboutZ(t *testing.T) {
	got, err := Vec(1, 0, 0).Rotate(Vec(0, 0, 1), 90*s1.Degree)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !got.ApproxEqual(Vec(0, 1, 0), 1e-15) {
		t.Fatalf("Rotate(x, z, 90°) = %+v, want y", got)
	}
}

func TestRotation_ZeroAxis(t *testing.T) {
	if _, err := NewRotation(Vector3{}, s1.Degree); !errors.Is(err, ErrDegenerateVector) {
		t.Fatalf("NewRotation(0) err = %v, want ErrDegenerateVector", err)
	}
}

func TestIntersectLinePlane(t *testing.T) {
	plane := Plane{Normal: Vec(0, 0, 1), D: -5}
	p, err := IntersectLinePlane(Line{Point: Vec(1, 1, 0), Direction: Vec(0, 1, 1)}, plane)
	if err != nil {
		t.Fatalf("IntersectLinePlane: %v", err)
	}
	if !p.ApproxEqual(Vec(1, 6, 5), 1e-12) {
		t.Fatalf("intersection = %+v, want (1,6,5)", p)
	}

	parallel := Line{Point: Vec(2, 3, 0), Direction: Vec(1, 0, 0)}
	if _, err := IntersectLinePlane(parallel, plane); !errors.Is(err, ErrNoLinePlaneIntersection) {
		t.Fatalf("parallel line err = %v, want ErrNoLinePlaneIntersection", err)
	}
	p, err = IntersectLinePlaneOrProject(parallel, plane)
	if err != nil {
		t.Fatalf("IntersectLinePlaneOrProject: %v", err)
	}
	if !p.ApproxEqual(Vec(2, 3, 5), 1e-12) {
		t.Fatalf("projection = %+v, want (2,3,5)", p)
	}
}

func TestPlaneFromPoints(t *testing.T) {
	pl, err := PlaneFromPoints(Vec(1, 0, 2), Vec(0, 1, 2), Vec(0, 0, 2))
	if err != nil {
		t.Fatalf("PlaneFromPoints: %v", err)
	}
	for _, q := range []Vector3{Vec(5, -9, 2), Vec(0, 0, 2)} {
		if math.Abs(pl.Eval(q)) > 1e-12 {
			t.Errorf("point %+v not on plane %+v", q, pl)
		}
	}
	if _, err := PlaneFromPoints(Vec(0, 0, 0), Vec(1, 1, 1), Vec(2, 2, 2)); !errors.Is(err, ErrDegeneratePlane) {
		t.Fatalf("collinear err = %v, want ErrDegeneratePlane", err)
	}
}

func TestPlaneFromLines_Skew(t *testing.T) {
	l1 := Line{Point: Vec(0, 0, 0), Direction: Vec(1, 0, 0)}
	l2 := Line{Point: Vec(0, 0, 1), Direction: Vec(0, 1, 0)}
	if _, err := PlaneFromLines(l1, l2); !errors.Is(err, ErrDegeneratePlane) {
		t.Fatalf("skew lines err = %v, want ErrDegeneratePlane", err)
	}
}

func TestIntersectPlanes(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Plane
	}{
		{"z restriction", Plane{Normal: Vec(1, 0, 0), D: -1}, Plane{Normal: Vec(0, 1, 0), D: -2}},
		// normals both have zero y, so the line is parallel to y and misses z=0 solvability
		{"y fallback", Plane{Normal: Vec(1, 0, 1), D: -3}, Plane{Normal: Vec(1, 0, -1), D: 1}},
		{"x fallback", Plane{Normal: Vec(0, 1, 1), D: -3}, Plane{Normal: Vec(0, 0, 1), D: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l, err := IntersectPlanes(tc.p1, tc.p2)
			if err != nil {
				t.Fatalf("IntersectPlanes: %v", err)
			}
			for _, s := range []float64{0, 1, -12.5} {
				q := l.At(s)
				if math.Abs(tc.p1.Eval(q)) > 1e-9 || math.Abs(tc.p2.Eval(q)) > 1e-9 {
					t.Fatalf("point %+v off one of the planes", q)
				}
			}
		})
	}

	_, err := IntersectPlanes(Plane{Normal: Vec(0, 0, 1), D: 0}, Plane{Normal: Vec(0, 0, 2), D: -4})
	if !errors.Is(err, ErrParallelPlanes) {
		t.Fatalf("parallel planes err = %v, want ErrParallelPlanes", err)
	}
}

func TestProjectLine(t *testing.T) {
	plane := Plane{Normal: Vec(0, 0, 1), D: 0}
	l := Line{Point: Vec(0, 0, 3), Direction: Vec(1, 1, 1)}
	proj, err := ProjectLine(l, plane)
	if err != nil {
		t.Fatalf("ProjectLine: %v", err)
	}
	dir, _ := proj.Direction.Normalize()
	want := 1 / math.Sqrt2
	if math.Abs(math.Abs(dir.X)-want) > 1e-12 || math.Abs(math.Abs(dir.Y)-want) > 1e-12 || math.Abs(dir.Z) > 1e-12 {
		t.Fatalf("projected direction = %+v, want ±(1,1,0)/√2", dir)
	}
	if math.Abs(plane.Eval(proj.Point)) > 1e-12 {
		t.Fatalf("projected point %+v not on plane", proj.Point)
	}

	perpendicular := Line{Point: Vec(1, 2, 3), Direction: Vec(0, 0, -1)}
	if _, err := ProjectLine(perpendicular, plane); err == nil {
		t.Fatalf("expected error projecting a line perpendicular to the plane")
	}
}

func TestEllipsoidIntersect_CentralLinesAreAntipodal(t *testing.T) {
	e := Ellipsoid{A: wgsA, B: wgsA, C: wgsC}
	dirs := []Vector3{Vec(1, 0, 0), Vec(0, 0, 1), Vec(1, 2, 3), Vec(-0.3, 0.9, -0.1)}
	for _, d := range dirs {
		p1, p2, err := e.Intersect(Line{Point: Vector3{}, Direction: d})
		if err != nil {
			t.Fatalf("Intersect(%+v): %v", d, err)
		}
		if !p1.Add(p2).ApproxEqual(Vector3{}, 1e-9) {
			t.Errorf("points %+v and %+v are not antipodal", p1, p2)
		}
		for _, p := range []Vector3{p1, p2} {
			if math.Abs(e.Implicit(p)) > 1e-9 {
				t.Errorf("point %+v off surface by %v", p, e.Implicit(p))
			}
		}
	}
}

func TestEllipsoidIntersect_Miss(t *testing.T) {
	e := Ellipsoid{A: wgsA, B: wgsA, C: wgsC}
	l := Line{Point: Vec(0, 0, 8000), Direction: Vec(1, 0, 0)}
	if _, _, err := e.Intersect(l); !errors.Is(err, ErrNoIntersection) {
		t.Fatalf("Intersect err = %v, want ErrNoIntersection", err)
	}
}

func TestEllipsoidNearestIntersection(t *testing.T) {
	e := Ellipsoid{A: wgsA, B: wgsA, C: wgsC}
	sat := Vec(wgsA+700, 0, 0)
	p, err := e.NearestIntersection(Line{Point: sat, Direction: Vec(-1, 0, 0)}, sat)
	if err != nil {
		t.Fatalf("NearestIntersection: %v", err)
	}
	if !p.ApproxEqual(Vec(wgsA, 0, 0), 1e-9) {
		t.Fatalf("nearest = %+v, want (a,0,0)", p)
	}
}

func TestEllipsoidTangentPlane(t *testing.T) {
	e := Ellipsoid{A: wgsA, B: wgsA, C: wgsC}
	p1, _, err := e.Intersect(Line{Point: Vector3{}, Direction: Vec(0.4, -0.2, 0.7)})
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	tp := e.TangentPlane(p1)
	if math.Abs(tp.Eval(p1)) > 1e-9 {
		t.Fatalf("tangent plane does not contain its point: %v", tp.Eval(p1))
	}
	// a neighbouring surface point lies on the inner side of the plane
	p2, _, _ := e.Intersect(Line{Point: Vector3{}, Direction: Vec(0.41, -0.2, 0.7)})
	if tp.Eval(p2) > 0 {
		t.Fatalf("neighbouring surface point lies outside the tangent plane")
	}
}
