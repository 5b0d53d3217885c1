package delta

import (
	"fmt"
	"sort"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
)

// diff partitions the external coverage tree against the snapshot by
// external id, per entity level. The three sets per level are disjoint by
// construction.
func diff(external []*dto.ProviderCity, snapshot []*domain.SnapshotEntry) (*domain.DeltaResult, error) {
	snapCities := map[string]*domain.SnapshotEntry{}
	snapDistricts := map[string]*domain.SnapshotEntry{}
	snapAreas := map[string]*domain.SnapshotEntry{}
	for _, entry := range snapshot {
		if _, ok := snapCities[entry.CityExternalID]; !ok {
			snapCities[entry.CityExternalID] = entry
		}
		if _, ok := snapDistricts[entry.DistrictExternalID]; !ok {
			snapDistricts[entry.DistrictExternalID] = entry
		}
		snapAreas[entry.AreaExternalID] = entry
	}

	result := &domain.DeltaResult{
		Cities:    domain.LevelDelta{Added: []domain.EntityRef{}, Changed: []domain.EntityChange{}, Removed: []domain.EntityRef{}},
		Districts: domain.LevelDelta{Added: []domain.EntityRef{}, Changed: []domain.EntityChange{}, Removed: []domain.EntityRef{}},
		Areas:     domain.LevelDelta{Added: []domain.EntityRef{}, Changed: []domain.EntityChange{}, Removed: []domain.EntityRef{}},
	}

	extCities := map[string]bool{}
	extDistricts := map[string]bool{}
	extAreas := map[string]bool{}

	// tracks which external cities need (re-)staging
	affected := map[string]bool{}

	for _, city := range external {
		if city.ExternalID == "" {
			return nil, fmt.Errorf("external city %q has empty id", city.Name)
		}
		extCities[city.ExternalID] = true

		snap, known := snapCities[city.ExternalID]
		if !known {
			result.Cities.Added = append(result.Cities.Added, domain.EntityRef{ExternalID: city.ExternalID, Name: city.Name})
			affected[city.ExternalID] = true
		} else {
			var changes []domain.FieldChange
			if snap.CityName != city.Name {
				changes = append(changes, domain.FieldChange{Field: "name", OldValue: snap.CityName, NewValue: city.Name})
			}
			if snap.CountryCode != city.CountryCode {
				changes = append(changes, domain.FieldChange{Field: "country_code", OldValue: snap.CountryCode, NewValue: city.CountryCode})
			}
			if len(changes) > 0 {
				result.Cities.Changed = append(result.Cities.Changed, domain.EntityChange{ExternalID: city.ExternalID, Name: city.Name, Changes: changes})
				affected[city.ExternalID] = true
			}
		}

		for _, district := range city.Districts {
			extDistricts[district.ExternalID] = true

			dsnap, dknown := snapDistricts[district.ExternalID]
			if !dknown {
				result.Districts.Added = append(result.Districts.Added, domain.EntityRef{ExternalID: district.ExternalID, Name: district.Name})
				affected[city.ExternalID] = true
			} else if dsnap.DistrictName != district.Name {
				result.Districts.Changed = append(result.Districts.Changed, domain.EntityChange{
					ExternalID: district.ExternalID,
					Name:       district.Name,
					Changes:    []domain.FieldChange{{Field: "name", OldValue: dsnap.DistrictName, NewValue: district.Name}},
				})
				affected[city.ExternalID] = true
			}

			for _, area := range district.Areas {
				extAreas[area.ExternalID] = true

				asnap, aknown := snapAreas[area.ExternalID]
				if !aknown {
					result.Areas.Added = append(result.Areas.Added, domain.EntityRef{ExternalID: area.ExternalID, Name: area.Name})
					affected[city.ExternalID] = true
					continue
				}

				geofence, err := dto.GeofenceFrom(area.Geofence)
				if err != nil {
					return nil, fmt.Errorf("area %s: %w", area.ExternalID, err)
				}

				var changes []domain.FieldChange
				if asnap.AreaName != area.Name {
					changes = append(changes, domain.FieldChange{Field: "name", OldValue: asnap.AreaName, NewValue: area.Name})
				}
				if asnap.IsDelivery != area.IsDelivery {
					changes = append(changes, domain.FieldChange{
						Field:    "is_delivery",
						OldValue: fmt.Sprintf("%t", asnap.IsDelivery),
						NewValue: fmt.Sprintf("%t", area.IsDelivery),
					})
				}
				if !geofenceEqual(asnap.Geofence, geofence) {
					changes = append(changes, domain.FieldChange{
						Field:    "geofence",
						OldValue: geometrySummary(asnap.Geofence),
						NewValue: geometrySummary(geofence),
					})
				}

				if len(changes) > 0 {
					result.Areas.Changed = append(result.Areas.Changed, domain.EntityChange{ExternalID: area.ExternalID, Name: area.Name, Changes: changes})
					affected[city.ExternalID] = true
				}
			}
		}
	}

	// removed: in snapshot, absent from the external fetch
	for id, entry := range snapCities {
		if !extCities[id] {
			result.Cities.Removed = append(result.Cities.Removed, domain.EntityRef{ExternalID: id, Name: entry.CityName})
		}
	}
	for id, entry := range snapDistricts {
		if !extDistricts[id] {
			result.Districts.Removed = append(result.Districts.Removed, domain.EntityRef{ExternalID: id, Name: entry.DistrictName})
			if extCities[entry.CityExternalID] {
				affected[entry.CityExternalID] = true
			}
		}
	}
	for id, entry := range snapAreas {
		if !extAreas[id] {
			result.Areas.Removed = append(result.Areas.Removed, domain.EntityRef{ExternalID: id, Name: entry.AreaName})
			if extCities[entry.CityExternalID] {
				affected[entry.CityExternalID] = true
			}
		}
	}

	sortLevel(&result.Cities)
	sortLevel(&result.Districts)
	sortLevel(&result.Areas)

	result.RenameSuggestions = append(
		renameSuggestions("district", result.Districts.Removed, result.Districts.Added),
		renameSuggestions("area", result.Areas.Removed, result.Areas.Added)...,
	)

	result.StagedCities = make([]string, 0, len(affected))
	for id := range affected {
		result.StagedCities = append(result.StagedCities, id)
	}
	sort.Strings(result.StagedCities)

	return result, nil
}

func sortLevel(level *domain.LevelDelta) {
	sort.Slice(level.Added, func(i, j int) bool { return level.Added[i].ExternalID < level.Added[j].ExternalID })
	sort.Slice(level.Changed, func(i, j int) bool { return level.Changed[i].ExternalID < level.Changed[j].ExternalID })
	sort.Slice(level.Removed, func(i, j int) bool { return level.Removed[i].ExternalID < level.Removed[j].ExternalID })
}
