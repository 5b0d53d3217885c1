package domain

import "time"

// SnapshotEntry is one area, flattened with its city/district context, as
// last confirmed in production. The full set of rows is "the last known
// truth" the delta detector diffs against. Rows are replaced per city at
// commit time, never mutated incrementally.
type SnapshotEntry struct {
	ID                 int64     `db:"id" json:"id"`
	CityExternalID     string    `db:"city_external_id" json:"city_external_id"`
	CityName           string    `db:"city_name" json:"city_name"`
	CountryCode        string    `db:"country_code" json:"country_code"`
	DistrictExternalID string    `db:"district_external_id" json:"district_external_id"`
	DistrictName       string    `db:"district_name" json:"district_name"`
	AreaExternalID     string    `db:"area_external_id" json:"area_external_id"`
	AreaName           string    `db:"area_name" json:"area_name"`
	IsDelivery         bool      `db:"is_delivery" json:"is_delivery"`
	Geofence           *Geofence `db:"geofence" json:"geofence,omitempty"`
	SnapshotAt         time.Time `db:"snapshot_at" json:"snapshot_at"`
}
