package domain

import "time"

// Production entities. Written only by the commit engine (and geofence-only
// updates from geo sync); read-only for everything else.

type City struct {
	ID          int64     `db:"id" json:"id"`
	ExternalID  string    `db:"external_id" json:"external_id"`
	Name        string    `db:"name" json:"name"`
	CountryCode string    `db:"country_code" json:"country_code"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type District struct {
	ID         int64     `db:"id" json:"id"`
	CityID     int64     `db:"city_id" json:"city_id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type Area struct {
	ID         int64     `db:"id" json:"id"`
	DistrictID int64     `db:"district_id" json:"district_id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Name       string    `db:"name" json:"name"`
	IsDelivery bool      `db:"is_delivery" json:"is_delivery"`
	Geofence   *Geofence `db:"geofence" json:"geofence,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DeliveryArea is an Area joined with its city/district context, used by the
// point-in-polygon delivery check.
type DeliveryArea struct {
	AreaExternalID string    `db:"area_external_id" json:"area_external_id"`
	AreaName       string    `db:"area_name" json:"area_name"`
	DistrictName   string    `db:"district_name" json:"district_name"`
	CityName       string    `db:"city_name" json:"city_name"`
	IsDelivery     bool      `db:"is_delivery" json:"is_delivery"`
	Geofence       *Geofence `db:"geofence" json:"geofence,omitempty"`
}
