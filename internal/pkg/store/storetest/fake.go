// Package storetest provides an in-memory store.Store for service tests,
// with per-city failure injection for exercising commit retry paths.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/store"
)

type Fake struct {
	mu sync.Mutex

	cities    map[string]*domain.City
	districts map[string]*domain.District
	areas     map[string]*domain.Area
	staging   map[int64]*domain.StagingCity
	snapshot  map[string]*domain.SnapshotEntry
	oplog     []*domain.OperationLogEntry
	nextID    int64

	// FailCity makes every production write for the given city external id
	// fail with the mapped error until the entry is removed.
	FailCity map[string]error
}

var _ store.Store = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		cities:    make(map[string]*domain.City),
		districts: make(map[string]*domain.District),
		areas:     make(map[string]*domain.Area),
		staging:   make(map[int64]*domain.StagingCity),
		snapshot:  make(map[string]*domain.SnapshotEntry),
		FailCity:  make(map[string]error),
	}
}

func (f *Fake) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *Fake) UpsertCity(_ context.Context, city *domain.City) (*domain.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.FailCity[city.ExternalID]; ok {
		return nil, err
	}

	existing, ok := f.cities[city.ExternalID]
	if !ok {
		existing = &domain.City{ID: f.id(), ExternalID: city.ExternalID, CreatedAt: time.Now()}
		f.cities[city.ExternalID] = existing
	}
	existing.Name = city.Name
	existing.CountryCode = city.CountryCode
	existing.UpdatedAt = time.Now()

	clone := *existing
	return &clone, nil
}

func (f *Fake) UpsertDistrict(_ context.Context, district *domain.District) (*domain.District, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.districts[district.ExternalID]
	if !ok {
		existing = &domain.District{ID: f.id(), ExternalID: district.ExternalID, CreatedAt: time.Now()}
		f.districts[district.ExternalID] = existing
	}
	existing.CityID = district.CityID
	existing.Name = district.Name
	existing.UpdatedAt = time.Now()

	clone := *existing
	return &clone, nil
}

func (f *Fake) UpsertAreas(_ context.Context, districtID int64, areas []domain.Area) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, area := range areas {
		existing, ok := f.areas[area.ExternalID]
		if !ok {
			existing = &domain.Area{ID: f.id(), ExternalID: area.ExternalID, CreatedAt: time.Now()}
			f.areas[area.ExternalID] = existing
		}
		existing.DistrictID = districtID
		existing.Name = area.Name
		existing.IsDelivery = area.IsDelivery
		existing.Geofence = area.Geofence
		existing.UpdatedAt = time.Now()
	}

	return nil
}

func (f *Fake) UpdateAreaGeofence(_ context.Context, areaExternalID string, geofence *domain.Geofence) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	area, ok := f.areas[areaExternalID]
	if !ok {
		return fmt.Errorf("area %s: %w", areaExternalID, constants.ErrDBNotFound)
	}
	area.Geofence = geofence
	area.UpdatedAt = time.Now()

	return nil
}

func (f *Fake) ListAreas(_ context.Context) ([]*domain.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*domain.Area, 0, len(f.areas))
	for _, area := range f.areas {
		clone := *area
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })

	return out, nil
}

func (f *Fake) ListDeliveryAreas(_ context.Context) ([]*domain.DeliveryArea, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.DeliveryArea
	for _, area := range f.areas {
		if !area.IsDelivery || area.Geofence == nil {
			continue
		}

		da := &domain.DeliveryArea{
			AreaExternalID: area.ExternalID,
			AreaName:       area.Name,
			IsDelivery:     area.IsDelivery,
			Geofence:       area.Geofence,
		}
		for _, d := range f.districts {
			if d.ID == area.DistrictID {
				da.DistrictName = d.Name
				for _, c := range f.cities {
					if c.ID == d.CityID {
						da.CityName = c.Name
					}
				}
			}
		}
		out = append(out, da)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaExternalID < out[j].AreaExternalID })

	return out, nil
}

func (f *Fake) CountAreas(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.areas)), nil
}

func (f *Fake) UpsertStagingCity(_ context.Context, city *domain.StagingCity) (*domain.StagingCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// terminal rows are immutable history, only the active row conflicts
	var existing *domain.StagingCity
	for _, sc := range f.staging {
		if sc.ExternalID != city.ExternalID {
			continue
		}
		if sc.Status == domain.StagingStatusPending || sc.Status == domain.StagingStatusApproved {
			existing = sc
			break
		}
	}

	if existing == nil {
		existing = &domain.StagingCity{ID: f.id(), ExternalID: city.ExternalID, Status: domain.StagingStatusPending, CreatedAt: time.Now()}
		f.staging[existing.ID] = existing
	}

	existing.Name = city.Name
	existing.CountryCode = city.CountryCode
	existing.Source = city.Source
	existing.Districts = city.Districts
	existing.UpdatedAt = time.Now()

	clone := *existing
	return &clone, nil
}

func (f *Fake) GetStagingCity(_ context.Context, id int64) (*domain.StagingCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sc, ok := f.staging[id]
	if !ok {
		return nil, constants.ErrDBNotFound
	}

	clone := *sc
	return &clone, nil
}

func (f *Fake) ListStagingByStatus(_ context.Context, status domain.StagingStatus) ([]*domain.StagingCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.StagingCity
	for _, sc := range f.staging {
		if sc.Status == status {
			clone := *sc
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (f *Fake) ListStagingByIDs(_ context.Context, ids []int64) ([]*domain.StagingCity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.StagingCity
	for _, id := range ids {
		if sc, ok := f.staging[id]; ok {
			clone := *sc
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (f *Fake) UpdateStagingStatus(_ context.Context, id int64, from, to domain.StagingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sc, ok := f.staging[id]
	if !ok || sc.Status != from {
		return false, nil
	}
	sc.Status = to
	sc.UpdatedAt = time.Now()

	return true, nil
}

func (f *Fake) StagingCounts(_ context.Context) (map[domain.StagingStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[domain.StagingStatus]int64)
	for _, sc := range f.staging {
		counts[sc.Status]++
	}

	return counts, nil
}

func (f *Fake) ReplaceCitySnapshot(_ context.Context, cityExternalID string, entries []*domain.SnapshotEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.FailCity[cityExternalID]; ok {
		return err
	}

	for areaExternalID, entry := range f.snapshot {
		if entry.CityExternalID == cityExternalID {
			delete(f.snapshot, areaExternalID)
		}
	}

	now := time.Now().UTC()
	for _, entry := range entries {
		clone := *entry
		clone.ID = f.id()
		if clone.SnapshotAt.IsZero() {
			clone.SnapshotAt = now
		}
		f.snapshot[clone.AreaExternalID] = &clone
	}

	return nil
}

func (f *Fake) UpdateSnapshotGeofence(_ context.Context, areaExternalID string, geofence *domain.Geofence) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.snapshot[areaExternalID]
	if !ok {
		return fmt.Errorf("snapshot entry %s: %w", areaExternalID, constants.ErrDBNotFound)
	}
	entry.Geofence = geofence
	entry.SnapshotAt = time.Now().UTC()

	return nil
}

func (f *Fake) ListSnapshot(_ context.Context) ([]*domain.SnapshotEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*domain.SnapshotEntry, 0, len(f.snapshot))
	for _, entry := range f.snapshot {
		clone := *entry
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AreaExternalID < out[j].AreaExternalID })

	return out, nil
}

func (f *Fake) CountSnapshot(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.snapshot)), nil
}

func (f *Fake) StartOperation(_ context.Context, opType domain.OperationType, batchID string) (*domain.OperationLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := &domain.OperationLogEntry{
		ID:        f.id(),
		BatchID:   batchID,
		Type:      opType,
		Status:    domain.OperationStarted,
		StartedAt: time.Now().UTC(),
	}
	f.oplog = append(f.oplog, entry)

	clone := *entry
	return &clone, nil
}

func (f *Fake) FinishOperation(_ context.Context, id int64, status domain.OperationStatus, details domain.Details) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, entry := range f.oplog {
		if entry.ID == id {
			if entry.Status != domain.OperationStarted {
				return fmt.Errorf("operation %d is not in started state", id)
			}
			now := time.Now().UTC()
			entry.Status = status
			entry.CompletedAt = &now
			entry.Details = details
			return nil
		}
	}

	return fmt.Errorf("operation %d: %w", id, constants.ErrDBNotFound)
}

func (f *Fake) RecordOperation(_ context.Context, opType domain.OperationType, batchID string, status domain.OperationStatus, details domain.Details) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	f.oplog = append(f.oplog, &domain.OperationLogEntry{
		ID:          f.id(),
		BatchID:     batchID,
		Type:        opType,
		Status:      status,
		StartedAt:   now,
		CompletedAt: &now,
		Details:     details,
	})

	return nil
}

func (f *Fake) ListOperations(_ context.Context, limit int) ([]*domain.OperationLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.OperationLogEntry
	for i := len(f.oplog) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *f.oplog[i]
		out = append(out, &clone)
	}

	return out, nil
}

func (f *Fake) ListOperationsByBatch(_ context.Context, batchID string) ([]*domain.OperationLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.OperationLogEntry
	for _, entry := range f.oplog {
		if entry.BatchID == batchID {
			clone := *entry
			out = append(out, &clone)
		}
	}

	return out, nil
}

// Area returns the production area by external id, for assertions.
func (f *Fake) Area(externalID string) (*domain.Area, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	area, ok := f.areas[externalID]
	if !ok {
		return nil, false
	}
	clone := *area
	return &clone, true
}

// Operations returns the full log in insertion order, for assertions.
func (f *Fake) Operations() []*domain.OperationLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*domain.OperationLogEntry, 0, len(f.oplog))
	for _, entry := range f.oplog {
		clone := *entry
		out = append(out, &clone)
	}

	return out
}
