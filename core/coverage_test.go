package core

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/golang/geo/s1"

	"github.com/signalsfoundry/coverage-simulator/geodesy"
	"github.com/signalsfoundry/coverage-simulator/model"
)

// certainTable always yields score.
func certainTable(t *testing.T, score, width int) *model.CloudTable {
	t.Helper()
	row := make([]float64, width)
	row[score] = 1
	table, err := model.NewCloudTable([][]float64{row}, []int{0, 365})
	if err != nil {
		t.Fatalf("NewCloudTable: %v", err)
	}
	return table
}

func unitSwath() Swath {
	return NewSwath(
		Edge{Left: geodesy.GeoCoordinate{Longitude: -1, Latitude: -1}, Right: geodesy.GeoCoordinate{Longitude: 1, Latitude: -1}},
		Edge{Left: geodesy.GeoCoordinate{Longitude: -1, Latitude: 1}, Right: geodesy.GeoCoordinate{Longitude: 1, Latitude: 1}},
	)
}

func segmentsAt(lons ...float64) []model.Segment {
	segs := make([]model.Segment, len(lons))
	for i, lon := range lons {
		segs[i] = model.Segment{Center: geodesy.GeoCoordinate{Longitude: lon}, Area: 10}
	}
	return segs
}

func TestCoverageGate_Close(t *testing.T) {
	g := NewCoverageGate(DefaultGateConfig(), geodesy.WGS84, nil, nil)
	s := SatelliteState{Geo: geodesy.GeoCoordinate{Altitude: 700}}

	near := &model.GroundPolygon{Center: geodesy.GeoCoordinate{Longitude: 1.5}, Radius: 80}
	far := &model.GroundPolygon{Center: geodesy.GeoCoordinate{Longitude: 30}, Radius: 80}
	if !g.Close(s, 10*s1.Degree, near) {
		t.Fatalf("polygon 1.5° away should be close")
	}
	if g.Close(s, 10*s1.Degree, far) {
		t.Fatalf("polygon 30° away should not be close")
	}
}

func TestCoverageGate_ScanCountsContainedSegments(t *testing.T) {
	g := NewCoverageGate(DefaultGateConfig(), geodesy.WGS84, nil, nil)
	p := &model.GroundPolygon{Segments: segmentsAt(-0.5, 0.5, 3)}

	area, grabs := g.Scan(p, unitSwath())
	if grabs != 2 || area != 20 {
		t.Fatalf("Scan = (%v, %d), want (20, 2)", area, grabs)
	}
	area, grabs = g.Scan(p, unitSwath())
	if grabs != 2 || area != 20 {
		t.Fatalf("second Scan = (%v, %d), want (20, 2)", area, grabs)
	}
	if p.Segments[0].Grabs != 2 || p.Segments[2].Grabs != 0 {
		t.Fatalf("grabs = %+v", p.Segments)
	}
}

func TestCoverageGate_SharedCloudBlocksAdmission(t *testing.T) {
	cfg := DefaultGateConfig()
	cfg.MaxCloudScore = 2
	g := NewCoverageGate(cfg, geodesy.WGS84, certainTable(t, 3, 5), rand.NewPCG(1, 2))

	a := &model.GroundPolygon{Name: "a"}
	b := &model.GroundPolygon{Name: "b"}
	g.BeginStep(time.Now(), 100, []*model.GroundPolygon{a, b})
	if a.CloudScore != 3 || b.CloudScore != 3 {
		t.Fatalf("cloud scores = %d, %d; want 3, 3", a.CloudScore, b.CloudScore)
	}
	if g.Admit(a) {
		t.Fatalf("score 3 should not be admitted with limit 2")
	}
}

func TestCoverageGate_PerPolygonTables(t *testing.T) {
	cfg := DefaultGateConfig()
	cfg.CloudMode = CloudPerPolygon
	cfg.MaxCloudScore = 1
	g := NewCoverageGate(cfg, geodesy.WGS84, certainTable(t, 0, 3), nil)

	own := &model.GroundPolygon{Name: "own", Cloud: certainTable(t, 2, 3)}
	shared := &model.GroundPolygon{Name: "shared"}
	g.BeginStep(time.Now(), 10, []*model.GroundPolygon{own, shared})
	if own.CloudScore != 2 || shared.CloudScore != 0 {
		t.Fatalf("cloud scores = %d, %d; want 2, 0", own.CloudScore, shared.CloudScore)
	}
	if g.Admit(own) || !g.Admit(shared) {
		t.Fatalf("admission mismatch: own %v shared %v", g.Admit(own), g.Admit(shared))
	}
}

func TestCoverageGate_CloudPersistsWithinSession(t *testing.T) {
	cfg := DefaultGateConfig()
	cfg.CloudRedraw = time.Hour
	g := NewCoverageGate(cfg, geodesy.WGS84, certainTable(t, 1, 2), nil)
	p := &model.GroundPolygon{}
	t0 := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	g.BeginStep(t0, 121, []*model.GroundPolygon{p})
	p.CloudScore = 7
	g.BeginStep(t0.Add(time.Minute), 121, []*model.GroundPolygon{p})
	if p.CloudScore != 7 {
		t.Fatalf("score redrawn within session: %d", p.CloudScore)
	}

	// A step with nothing close ends the session.
	g.BeginStep(t0.Add(2*time.Minute), 121, nil)
	g.BeginStep(t0.Add(3*time.Minute), 121, []*model.GroundPolygon{p})
	if p.CloudScore != 1 {
		t.Fatalf("score after new session = %d, want 1", p.CloudScore)
	}

	p.CloudScore = 7
	g.Reset()
	g.BeginStep(t0.Add(4*time.Minute), 121, []*model.GroundPolygon{p})
	if p.CloudScore != 1 {
		t.Fatalf("score after Reset = %d, want 1", p.CloudScore)
	}

	p.CloudScore = 7
	g.BeginStep(t0.Add(2*time.Hour), 121, []*model.GroundPolygon{p})
	if p.CloudScore != 1 {
		t.Fatalf("score after redraw interval = %d, want 1", p.CloudScore)
	}
}

func TestCoverageGate_LateJoinerGetsSessionCloud(t *testing.T) {
	cfg := DefaultGateConfig()
	cfg.MaxCloudScore = 0
	cfg.CloudRedraw = time.Hour
	t0 := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("shared", func(t *testing.T) {
		g := NewCoverageGate(cfg, geodesy.WGS84, certainTable(t, 1, 2), nil)
		a := &model.GroundPolygon{Name: "a"}
		b := &model.GroundPolygon{Name: "b"}

		g.BeginStep(t0, 121, []*model.GroundPolygon{a})
		g.BeginStep(t0.Add(10*time.Second), 121, []*model.GroundPolygon{a, b})
		if b.CloudScore != 1 || g.Admit(b) {
			t.Fatalf("late joiner: score %d admit %v, want 1 false", b.CloudScore, g.Admit(b))
		}
	})

	t.Run("per polygon", func(t *testing.T) {
		perPolygon := cfg
		perPolygon.CloudMode = CloudPerPolygon
		g := NewCoverageGate(perPolygon, geodesy.WGS84, nil, nil)
		a := &model.GroundPolygon{Name: "a", Cloud: certainTable(t, 1, 2)}
		b := &model.GroundPolygon{Name: "b", Cloud: certainTable(t, 1, 2)}

		g.BeginStep(t0, 121, []*model.GroundPolygon{a})
		a.CloudScore = 7
		g.BeginStep(t0.Add(10*time.Second), 121, []*model.GroundPolygon{a, b})
		if b.CloudScore != 1 || g.Admit(b) {
			t.Fatalf("late joiner: score %d admit %v, want 1 false", b.CloudScore, g.Admit(b))
		}
		if a.CloudScore != 7 {
			t.Fatalf("scored polygon redrawn within session: %d", a.CloudScore)
		}
	})
}

func TestCoverageGate_PartialCloudiness(t *testing.T) {
	cfg := DefaultGateConfig()
	cfg.PartialCloudiness = true
	table := certainTable(t, 0, 3)
	g := NewCoverageGate(cfg, geodesy.WGS84, table, rand.NewPCG(3, 4))

	p := &model.GroundPolygon{Segments: segmentsAt(-0.5, 0, 0.5)}
	p.CloudScore = table.MaxScore()
	if _, grabs := g.Scan(p, unitSwath()); grabs != 0 {
		t.Fatalf("fully overcast scan captured %d segments", grabs)
	}
	p.CloudScore = 0
	if _, grabs := g.Scan(p, unitSwath()); grabs != 3 {
		t.Fatalf("clear scan captured %d segments, want 3", grabs)
	}

	// Half cloud hides each segment with probability 0.75.
	p = &model.GroundPolygon{Segments: make([]model.Segment, 4000)}
	for i := range p.Segments {
		p.Segments[i].Center = geodesy.GeoCoordinate{Longitude: 0.1, Latitude: 0.1}
	}
	p.CloudScore = 1
	_, grabs := g.Scan(p, unitSwath())
	if frac := float64(grabs) / 4000; frac < 0.2 || frac > 0.3 {
		t.Fatalf("visible fraction %.3f, want about 0.25", frac)
	}
}

func TestCoverageGate_SunAllows(t *testing.T) {
	cfg := DefaultGateConfig()
	cfg.MaxZenith = 80 * s1.Degree
	g := NewCoverageGate(cfg, geodesy.WGS84, nil, nil)
	equator := geodesy.GeoCoordinate{}

	noon := time.Date(2023, 3, 21, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2023, 3, 21, 0, 0, 0, 0, time.UTC)
	if !g.SunAllows(noon, equator) {
		t.Fatalf("equatorial noon should pass the sun gate")
	}
	if g.SunAllows(midnight, equator) {
		t.Fatalf("equatorial midnight should fail the sun gate")
	}
	open := NewCoverageGate(DefaultGateConfig(), geodesy.WGS84, nil, nil)
	if !open.SunAllows(midnight, equator) {
		t.Fatalf("default gate should ignore the sun")
	}
}
