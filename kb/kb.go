package kb

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/signalsfoundry/coverage-simulator/model"
)

var (
	ErrPolygonExists   = errors.New("polygon already exists")
	ErrSatelliteExists = errors.New("satellite already exists")
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventPolygonAdded EventType = iota
	EventSatelliteAdded
	EventGrabsCleared
)

// Event is emitted to subscribers when the task contents change.
type Event struct {
	Type EventType
	Name string
}

// KnowledgeBase owns the ground polygons and satellites of a run. Polygons
// and satellites are kept in insertion order.
type KnowledgeBase struct {
	mu sync.RWMutex

	polygons   []*model.GroundPolygon
	satellites []*model.SatelliteDefinition
	names      map[string]struct{}
	satNames   map[string]struct{}

	subs      []subscriber
	nextSubID int
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		names:    make(map[string]struct{}),
		satNames: make(map[string]struct{}),
	}
}

// AddPolygon stores a partitioned polygon. An empty name becomes
// "Polygon N" where N is the polygon's 1-based position.
func (kb *KnowledgeBase) AddPolygon(p *model.GroundPolygon) error {
	if p == nil {
		return fmt.Errorf("nil polygon")
	}
	if len(p.Segments) == 0 || p.Area <= 0 {
		return fmt.Errorf("%w: %q has no segments", model.ErrEmptyPolygon, p.Name)
	}
	kb.mu.Lock()
	if p.Name == "" {
		p.Name = fmt.Sprintf("Polygon %d", len(kb.polygons)+1)
	}
	if _, exists := kb.names[p.Name]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrPolygonExists, p.Name)
	}
	kb.names[p.Name] = struct{}{}
	kb.polygons = append(kb.polygons, p)
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventPolygonAdded, Name: p.Name})
	return nil
}

// AddSatellite stores a satellite definition.
func (kb *KnowledgeBase) AddSatellite(s *model.SatelliteDefinition) error {
	if s == nil || s.Name == "" {
		return fmt.Errorf("nil or unnamed satellite")
	}
	kb.mu.Lock()
	if _, exists := kb.satNames[s.Name]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSatelliteExists, s.Name)
	}
	kb.satNames[s.Name] = struct{}{}
	kb.satellites = append(kb.satellites, s)
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventSatelliteAdded, Name: s.Name})
	return nil
}

// Polygons returns a snapshot slice of all polygons in insertion order.
func (kb *KnowledgeBase) Polygons() []*model.GroundPolygon {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]*model.GroundPolygon(nil), kb.polygons...)
}

// Satellites returns a snapshot slice of all satellites in insertion order.
func (kb *KnowledgeBase) Satellites() []*model.SatelliteDefinition {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return append([]*model.SatelliteDefinition(nil), kb.satellites...)
}

// TotalArea is the summed area of every polygon in km².
func (kb *KnowledgeBase) TotalArea() float64 {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	total := 0.0
	for _, p := range kb.polygons {
		total += p.Area
	}
	return total
}

// Coverage returns, for n = 1, 2, ..., the area scanned at least n times,
// indexed by n-1. The slice ends at the highest grab count reached. With
// percent set, areas are expressed as a percentage of TotalArea.
func (kb *KnowledgeBase) Coverage(percent bool) ([]float64, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	byCount := map[int]float64{}
	max, total := 0, 0.0
	for _, p := range kb.polygons {
		total += p.Area
		for _, s := range p.Segments {
			if s.Grabs == 0 {
				continue
			}
			byCount[s.Grabs] += s.Area
			if s.Grabs > max {
				max = s.Grabs
			}
		}
	}
	if percent && total <= 0 {
		return nil, fmt.Errorf("%w: total polygon area is zero", model.ErrEmptyPolygon)
	}

	out := make([]float64, max)
	acc := 0.0
	for n := max; n >= 1; n-- {
		acc += byCount[n]
		out[n-1] = acc
	}
	if percent {
		for i := range out {
			out[i] = out[i] / total * 100
		}
	}
	return out, nil
}

// ClearGrabs resets every segment's grab counter and notifies subscribers.
func (kb *KnowledgeBase) ClearGrabs() {
	kb.mu.Lock()
	for _, p := range kb.polygons {
		p.ClearGrabs()
	}
	subs := kb.subscribers()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventGrabsCleared})
}

type subscriber struct {
	id int
	fn func(Event)
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function; calling it more than once is a no-op.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.nextSubID++
	id := kb.nextSubID
	kb.subs = append(kb.subs, subscriber{id: id, fn: fn})

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		kb.subs = slices.DeleteFunc(kb.subs, func(s subscriber) bool { return s.id == id })
	}
}

// subscribers copies the callbacks in registration order. Callers hold mu.
func (kb *KnowledgeBase) subscribers() []func(Event) {
	fns := make([]func(Event), len(kb.subs))
	for i, s := range kb.subs {
		fns[i] = s.fn
	}
	return fns
}

// notify runs callbacks outside the lock to avoid deadlocks.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
