package dto

import (
	"github.com/paulmach/orb/geojson"
)

// Wire types for the external provider's coverage API.

type ProviderArea struct {
	ExternalID string            `json:"id"`
	Name       string            `json:"name"`
	IsDelivery bool              `json:"is_delivery"`
	Geofence   *geojson.Geometry `json:"geofence,omitempty"`
}

type ProviderDistrict struct {
	ExternalID string         `json:"id"`
	Name       string         `json:"name"`
	Areas      []ProviderArea `json:"areas"`
}

type ProviderCity struct {
	ExternalID  string             `json:"id"`
	Name        string             `json:"name"`
	CountryCode string             `json:"country_code"`
	Districts   []ProviderDistrict `json:"districts"`
}
