package domain

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Geofence is a delivery boundary, a polygon or multi-polygon in WGS84.
// It serializes as GeoJSON both on the wire and in jsonb columns.
type Geofence struct {
	Geometry orb.Geometry
}

func NewGeofence(g orb.Geometry) (*Geofence, error) {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return &Geofence{Geometry: g}, nil
	default:
		return nil, fmt.Errorf("unsupported geofence geometry type %s", g.GeoJSONType())
	}
}

func (g Geofence) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(geojson.NewGeometry(g.Geometry))
}

func (g *Geofence) UnmarshalJSON(data []byte) error {
	geom, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("unmarshal geofence: %w", err)
	}

	switch gg := geom.Geometry().(type) {
	case orb.Polygon, orb.MultiPolygon:
		g.Geometry = gg
	default:
		return fmt.Errorf("unsupported geofence geometry type %s", gg.GeoJSONType())
	}

	return nil
}
