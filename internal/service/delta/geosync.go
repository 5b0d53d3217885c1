package delta

import (
	"context"
	"errors"
	"fmt"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/logger"
)

type GeoSyncResult struct {
	BatchID        string   `json:"batch_id"`
	UpdatedAreas   []string `json:"updated_areas"`
	StagedCities   []string `json:"staged_cities"`
	SkippedNoFence int      `json:"skipped_no_fence"`
}

// StartGeoSync runs a geo sync in the background, failing fast when one is
// already in flight.
func (s *Service) StartGeoSync(ctx context.Context, batchID string) error {
	release, err := s.guard.Acquire(domain.OperationGeoSync, batchID)
	if err != nil {
		return err
	}

	go func() {
		defer release()

		bgCtx := context.Background()
		if _, err := s.runGeoSync(bgCtx, batchID); err != nil {
			logger.Errorf(bgCtx, "geo sync, batch_id-%s: %s", batchID, err.Error())
		}
	}()

	return nil
}

// RunGeoSync refreshes geofence geometry for areas that already exist in
// production, in place and without review. Areas the pipeline has never seen
// are staged as pending candidates instead; new coverage never bypasses
// approval.
func (s *Service) RunGeoSync(ctx context.Context, batchID string) (*GeoSyncResult, error) {
	release, err := s.guard.Acquire(domain.OperationGeoSync, batchID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.runGeoSync(ctx, batchID)
}

func (s *Service) runGeoSync(ctx context.Context, batchID string) (*GeoSyncResult, error) {
	op, err := s.store.StartOperation(ctx, domain.OperationGeoSync, batchID)
	if err != nil {
		return nil, fmt.Errorf("store.StartOperation: %w", err)
	}

	result, err := s.syncGeofences(ctx, batchID)
	if err != nil {
		if finishErr := s.store.FinishOperation(ctx, op.ID, domain.OperationFailed, domain.Details{"error": err.Error()}); finishErr != nil {
			logger.Errorf(ctx, "finish geo_sync operation: %s", finishErr.Error())
		}
		return nil, err
	}

	details := domain.Details{
		"updated_areas": len(result.UpdatedAreas),
		"staged_cities": result.StagedCities,
	}
	if err = s.store.FinishOperation(ctx, op.ID, domain.OperationSuccess, details); err != nil {
		logger.Errorf(ctx, "finish geo_sync operation: %s", err.Error())
	}

	return result, nil
}

func (s *Service) syncGeofences(ctx context.Context, batchID string) (*GeoSyncResult, error) {
	cities, err := s.client.FetchCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("client.FetchCities: %w", err)
	}

	areas, err := s.store.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListAreas: %w", err)
	}

	known := make(map[string]*domain.Area, len(areas))
	for _, area := range areas {
		known[area.ExternalID] = area
	}

	result := &GeoSyncResult{BatchID: batchID}
	staged := map[string]bool{}

	for _, city := range cities {
		cityHasNewAreas := false

		for _, district := range city.Districts {
			for _, area := range district.Areas {
				geofence, convErr := dto.GeofenceFrom(area.Geofence)
				if convErr != nil {
					return nil, fmt.Errorf("area %s: %w", area.ExternalID, convErr)
				}

				existing, ok := known[area.ExternalID]
				if !ok {
					cityHasNewAreas = true
					continue
				}

				if geofence == nil {
					result.SkippedNoFence++
					continue
				}
				if geofenceEqual(existing.Geofence, geofence) {
					continue
				}

				if err = s.store.UpdateAreaGeofence(ctx, area.ExternalID, geofence); err != nil {
					return nil, fmt.Errorf("store.UpdateAreaGeofence, area-%s: %w", area.ExternalID, err)
				}
				// keep the snapshot aligned so the next delta check does not
				// re-report the same geometry
				if err = s.store.UpdateSnapshotGeofence(ctx, area.ExternalID, geofence); err != nil {
					if !errors.Is(err, constants.ErrDBNotFound) {
						return nil, fmt.Errorf("store.UpdateSnapshotGeofence, area-%s: %w", area.ExternalID, err)
					}
					logger.Warnf(ctx, "geo sync: area %s has no snapshot entry", area.ExternalID)
				}

				result.UpdatedAreas = append(result.UpdatedAreas, area.ExternalID)
			}
		}

		if cityHasNewAreas && !staged[city.ExternalID] {
			candidate, convErr := city.ToStaging(sourceGeoSync)
			if convErr != nil {
				return nil, fmt.Errorf("toStagingCity, city-%s: %w", city.ExternalID, convErr)
			}
			if _, err = s.store.UpsertStagingCity(ctx, candidate); err != nil {
				return nil, fmt.Errorf("store.UpsertStagingCity, city-%s: %w", city.ExternalID, err)
			}
			staged[city.ExternalID] = true
			result.StagedCities = append(result.StagedCities, city.ExternalID)
		}
	}

	return result, nil
}
