package domain

import "time"

type StagingStatus string

const (
	StagingStatusPending   StagingStatus = "pending"
	StagingStatusApproved  StagingStatus = "approved"
	StagingStatusRejected  StagingStatus = "rejected"
	StagingStatusCommitted StagingStatus = "committed"
)

func (s StagingStatus) Valid() bool {
	switch s {
	case StagingStatusPending, StagingStatusApproved, StagingStatusRejected, StagingStatusCommitted:
		return true
	}
	return false
}

// Staged payload is the full candidate city tree, kept as jsonb on the
// staging row so review always sees exactly what a commit would write.

type StagedArea struct {
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	IsDelivery bool      `json:"is_delivery"`
	Geofence   *Geofence `json:"geofence,omitempty"`
}

type StagedDistrict struct {
	ExternalID string       `json:"external_id"`
	Name       string       `json:"name"`
	Areas      []StagedArea `json:"areas"`
}

type StagingCity struct {
	ID          int64            `db:"id" json:"id"`
	ExternalID  string           `db:"external_id" json:"external_id"`
	Name        string           `db:"name" json:"name"`
	CountryCode string           `db:"country_code" json:"country_code"`
	Status      StagingStatus    `db:"status" json:"status"`
	Source      string           `db:"source" json:"source"`
	Districts   []StagedDistrict `db:"districts" json:"districts"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

func (c *StagingCity) AreaCount() int {
	n := 0
	for _, d := range c.Districts {
		n += len(d.Areas)
	}
	return n
}
