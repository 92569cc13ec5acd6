// Package polysource reads ground polygons from GeoJSON.
package polysource

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/coverage-simulator/model"
)

// ErrUnsupportedGeometry is returned for features that are not polygons.
var ErrUnsupportedGeometry = errors.New("unsupported geometry")

// NameProperty is the feature property holding a polygon's name.
const NameProperty = "name"

// LoadFile reads a GeoJSON file and returns its polygons in document order.
func LoadFile(path string) ([]*model.GroundPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read polygons: %w", err)
	}
	polys, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return polys, nil
}

// Decode parses a FeatureCollection or a single Feature. Only the outer
// ring of each polygon is used; a MultiPolygon yields one polygon per part,
// named "<name> #n". Features without a name get an empty one, which the
// knowledge base later replaces with "Polygon N".
func Decode(data []byte) ([]*model.GroundPolygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil || len(fc.Features) == 0 {
		f, ferr := geojson.UnmarshalFeature(data)
		if ferr != nil {
			if err == nil {
				err = ferr
			}
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		fc = geojson.NewFeatureCollection().Append(f)
	}

	var out []*model.GroundPolygon
	for i, f := range fc.Features {
		name := f.Properties.MustString(NameProperty, "")
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			p, err := fromPolygon(name, g)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			out = append(out, p)
		case orb.MultiPolygon:
			for j, part := range g {
				partName := name
				if partName != "" {
					partName = fmt.Sprintf("%s #%d", name, j+1)
				}
				p, err := fromPolygon(partName, part)
				if err != nil {
					return nil, fmt.Errorf("feature %d part %d: %w", i, j, err)
				}
				out = append(out, p)
			}
		default:
			geomType := "null"
			if f.Geometry != nil {
				geomType = f.Geometry.GeoJSONType()
			}
			return nil, fmt.Errorf("%w: feature %d is a %s", ErrUnsupportedGeometry, i, geomType)
		}
	}
	return out, nil
}

func fromPolygon(name string, poly orb.Polygon) (*model.GroundPolygon, error) {
	if len(poly) == 0 {
		return nil, fmt.Errorf("%w: %q has no rings", model.ErrDegeneratePolygon, name)
	}
	return model.NewGroundPolygon(name, poly[0])
}
