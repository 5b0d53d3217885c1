package dto

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/paulmach/orb/geojson"
)

func GeofenceFrom(g *geojson.Geometry) (*domain.Geofence, error) {
	if g == nil {
		return nil, nil
	}

	return domain.NewGeofence(g.Geometry())
}

// ToStaging builds the full candidate payload a commit would later write.
func (c *ProviderCity) ToStaging(source string) (*domain.StagingCity, error) {
	staged := &domain.StagingCity{
		ExternalID:  c.ExternalID,
		Name:        c.Name,
		CountryCode: c.CountryCode,
		Status:      domain.StagingStatusPending,
		Source:      source,
		Districts:   make([]domain.StagedDistrict, 0, len(c.Districts)),
	}

	for _, district := range c.Districts {
		stagedDistrict := domain.StagedDistrict{
			ExternalID: district.ExternalID,
			Name:       district.Name,
			Areas:      make([]domain.StagedArea, 0, len(district.Areas)),
		}

		for _, area := range district.Areas {
			geofence, err := GeofenceFrom(area.Geofence)
			if err != nil {
				return nil, fmt.Errorf("area %s: %w", area.ExternalID, err)
			}

			stagedDistrict.Areas = append(stagedDistrict.Areas, domain.StagedArea{
				ExternalID: area.ExternalID,
				Name:       area.Name,
				IsDelivery: area.IsDelivery,
				Geofence:   geofence,
			})
		}

		staged.Districts = append(staged.Districts, stagedDistrict)
	}

	return staged, nil
}

// ToStaging converts a scraped city. Scraped areas have no provider ids or
// geofences yet; stable synthetic ids are derived from the city id so a
// later commit still upserts deterministically.
func (c *DiscoveredCity) ToStaging(source string) *domain.StagingCity {
	staged := &domain.StagingCity{
		ExternalID:  c.ExternalID,
		Name:        c.Name,
		CountryCode: c.CountryCode,
		Status:      domain.StagingStatusPending,
		Source:      source,
		Districts:   make([]domain.StagedDistrict, 0, len(c.Districts)),
	}

	names := make([]string, 0, len(c.Districts))
	for name := range c.Districts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		district := c.Districts[name]
		stagedDistrict := domain.StagedDistrict{
			ExternalID: fmt.Sprintf("%s:%s", c.ExternalID, slug(district.Name)),
			Name:       district.Name,
			Areas:      make([]domain.StagedArea, 0, len(district.Areas)),
		}

		for _, area := range district.Areas {
			stagedDistrict.Areas = append(stagedDistrict.Areas, domain.StagedArea{
				ExternalID: fmt.Sprintf("%s:%s", stagedDistrict.ExternalID, slug(area.Name)),
				Name:       area.Name,
				IsDelivery: area.IsDelivery,
			})
		}

		staged.Districts = append(staged.Districts, stagedDistrict)
	}

	return staged
}

func slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
