// Package deliverycheck answers "can we deliver to this point" against the
// production area geofences.
package deliverycheck

import (
	"context"
	"fmt"

	"github.com/coverhub/geostaging/internal/pkg/store"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type Result struct {
	Deliverable    bool   `json:"deliverable"`
	AreaExternalID string `json:"area_external_id,omitempty"`
	AreaName       string `json:"area_name,omitempty"`
	DistrictName   string `json:"district_name,omitempty"`
	CityName       string `json:"city_name,omitempty"`
}

type Service struct {
	store store.Store
}

func NewService(store store.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Check(ctx context.Context, lon, lat float64) (*Result, error) {
	areas, err := s.store.ListDeliveryAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListDeliveryAreas: %w", err)
	}

	point := orb.Point{lon, lat}
	for _, area := range areas {
		if area.Geofence == nil {
			continue
		}

		if contains(area.Geofence.Geometry, point) {
			return &Result{
				Deliverable:    true,
				AreaExternalID: area.AreaExternalID,
				AreaName:       area.AreaName,
				DistrictName:   area.DistrictName,
				CityName:       area.CityName,
			}, nil
		}
	}

	return &Result{Deliverable: false}, nil
}

func contains(g orb.Geometry, point orb.Point) bool {
	switch gg := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(gg, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(gg, point)
	default:
		return false
	}
}
