// Package delta detects differences between the external provider's current
// coverage data and the last confirmed snapshot, and stages affected cities
// for review.
package delta

import (
	"context"
	"fmt"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
	"github.com/coverhub/geostaging/internal/pkg/logger"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store"
	"github.com/coverhub/geostaging/internal/service/provider"
)

const (
	sourceDeltaCheck = "delta_check"
	sourceGeoSync    = "geo_sync"
)

type Service struct {
	store  store.Store
	client provider.Client
	guard  *opguard.Guard
}

func NewService(store store.Store, client provider.Client, guard *opguard.Guard) *Service {
	return &Service{store: store, client: client, guard: guard}
}

// Start kicks off a delta check in the background and returns immediately.
// Fails fast with ErrBusy if one is already running; the result lands in the
// operation log under batchID.
func (s *Service) Start(ctx context.Context, batchID string) error {
	release, err := s.guard.Acquire(domain.OperationDeltaCheck, batchID)
	if err != nil {
		return err
	}

	go func() {
		defer release()

		// detached from the request context: the check outlives the call
		bgCtx := context.Background()
		if _, err := s.computeDelta(bgCtx, batchID); err != nil {
			logger.Errorf(bgCtx, "delta check, batch_id-%s: %s", batchID, err.Error())
		}
	}()

	return nil
}

// ComputeDelta runs a delta check synchronously.
func (s *Service) ComputeDelta(ctx context.Context, batchID string) (*domain.DeltaResult, error) {
	release, err := s.guard.Acquire(domain.OperationDeltaCheck, batchID)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.computeDelta(ctx, batchID)
}

func (s *Service) computeDelta(ctx context.Context, batchID string) (*domain.DeltaResult, error) {
	op, err := s.store.StartOperation(ctx, domain.OperationDeltaCheck, batchID)
	if err != nil {
		return nil, fmt.Errorf("store.StartOperation: %w", err)
	}

	result, err := s.runDeltaCheck(ctx, batchID)
	if err != nil {
		if finishErr := s.store.FinishOperation(ctx, op.ID, domain.OperationFailed, domain.Details{"error": err.Error()}); finishErr != nil {
			logger.Errorf(ctx, "finish delta_check operation: %s", finishErr.Error())
		}
		return nil, err
	}

	details := domain.Details{
		"summary":       result.Summary(),
		"staged_cities": result.StagedCities,
	}
	if err = s.store.FinishOperation(ctx, op.ID, domain.OperationSuccess, details); err != nil {
		logger.Errorf(ctx, "finish delta_check operation: %s", err.Error())
	}

	return result, nil
}

func (s *Service) runDeltaCheck(ctx context.Context, batchID string) (*domain.DeltaResult, error) {
	// fail fast on fetch errors, nothing is persisted before this point
	cities, err := s.client.FetchCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("client.FetchCities: %w", err)
	}

	snapshot, err := s.store.ListSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListSnapshot: %w", err)
	}

	result, err := diff(cities, snapshot)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	result.BatchID = batchID

	byID := make(map[string]*dto.ProviderCity, len(cities))
	for _, city := range cities {
		byID[city.ExternalID] = city
	}

	for _, cityExternalID := range result.StagedCities {
		city, ok := byID[cityExternalID]
		if !ok {
			continue
		}

		candidate, err := city.ToStaging(sourceDeltaCheck)
		if err != nil {
			return nil, fmt.Errorf("toStagingCity, city-%s: %w", cityExternalID, err)
		}

		if _, err = s.store.UpsertStagingCity(ctx, candidate); err != nil {
			return nil, fmt.Errorf("store.UpsertStagingCity, city-%s: %w", cityExternalID, err)
		}
	}

	return result, nil
}
