package delta

import (
	"fmt"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

// Geometry comparison precision, decimal places. Providers re-serialize
// coordinates with float drift well below this.
const geofencePrecision = 6

func roundCoord(v float64) float64 {
	return decimal.NewFromFloat(v).Round(geofencePrecision).InexactFloat64()
}

func roundRing(ring orb.Ring) {
	for i := range ring {
		ring[i][0] = roundCoord(ring[i][0])
		ring[i][1] = roundCoord(ring[i][1])
	}
}

func roundPolygon(p orb.Polygon) {
	for _, ring := range p {
		roundRing(ring)
	}
}

// normalizeGeometry returns a copy of g with coordinates rounded, so that
// equality is structural rather than bit-exact.
func normalizeGeometry(g orb.Geometry) orb.Geometry {
	clone := orb.Clone(g)
	switch gg := clone.(type) {
	case orb.Polygon:
		roundPolygon(gg)
	case orb.MultiPolygon:
		for _, p := range gg {
			roundPolygon(p)
		}
	}

	return clone
}

func geofenceEqual(a, b *domain.Geofence) bool {
	if a == nil || b == nil {
		return a == b
	}

	return orb.Equal(normalizeGeometry(a.Geometry), normalizeGeometry(b.Geometry))
}

func geometrySummary(g *domain.Geofence) string {
	if g == nil {
		return "none"
	}

	switch gg := g.Geometry.(type) {
	case orb.Polygon:
		points := 0
		for _, ring := range gg {
			points += len(ring)
		}
		return fmt.Sprintf("Polygon(%d rings, %d points)", len(gg), points)
	case orb.MultiPolygon:
		return fmt.Sprintf("MultiPolygon(%d polygons)", len(gg))
	default:
		return string(g.Geometry.GeoJSONType())
	}
}
