// Package commit promotes approved staging cities into production and the
// snapshot. Cities are written one at a time, in ascending-name order, with
// bounded retry per city; one city's failure never blocks the rest.
package commit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/logger"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store"
	"github.com/google/uuid"
)

const (
	defaultRetryMax        = 3
	defaultRetryInterval   = 2 * time.Second
	defaultHandleRetention = time.Hour
)

type Service struct {
	store store.Store
	guard *opguard.Guard

	retryMax        int
	retryInterval   time.Duration
	handleRetention time.Duration

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewService(store store.Store, guard *opguard.Guard) *Service {
	return &Service{
		store:           store,
		guard:           guard,
		retryMax:        defaultRetryMax,
		retryInterval:   defaultRetryInterval,
		handleRetention: defaultHandleRetention,
		handles:         make(map[string]*Handle),
	}
}

// Commit starts committing the given staging cities and returns a handle to
// observe progress. Fails fast with ErrBusy while another commit runs.
func (s *Service) Commit(ctx context.Context, cityIDs []int64) (*Handle, error) {
	batchID := uuid.NewString()

	release, err := s.guard.Acquire(domain.OperationCommit, batchID)
	if err != nil {
		return nil, err
	}

	cities, err := s.store.ListStagingByIDs(ctx, cityIDs)
	if err != nil {
		release()
		return nil, fmt.Errorf("store.ListStagingByIDs: %w", err)
	}

	op, err := s.store.StartOperation(ctx, domain.OperationCommit, batchID)
	if err != nil {
		release()
		return nil, fmt.Errorf("store.StartOperation: %w", err)
	}

	// the batch outlives the request; cancellation goes through the handle
	runCtx, cancel := context.WithCancel(context.Background())
	handle := newHandle(batchID, cancel)

	s.mu.Lock()
	s.handles[batchID] = handle
	s.mu.Unlock()

	go s.run(runCtx, release, handle, op.ID, cities)

	return handle, nil
}

// Handle returns the handle of a running or finished batch for reattach.
func (s *Service) Handle(batchID string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle, ok := s.handles[batchID]
	return handle, ok
}

func (s *Service) run(ctx context.Context, release func(), handle *Handle, opID int64, cities []*domain.StagingCity) {
	defer release()

	result := &Result{BatchID: handle.BatchID, Committed: []string{}, Failed: []FailedCity{}}
	total := len(cities)

	// writes run detached from cancellation so the city in flight always
	// completes; cancellation takes effect between cities
	writeCtx := context.WithoutCancel(ctx)

	for i, city := range cities {
		if ctx.Err() != nil {
			logger.Warnf(ctx, "commit batch %s cancelled after %d/%d cities", handle.BatchID, i, total)
			break
		}

		handle.publish(Progress{
			BatchID:  handle.BatchID,
			Current:  i + 1,
			Total:    total,
			CityName: city.Name,
		})

		if city.Status != domain.StagingStatusApproved && city.Status != domain.StagingStatusCommitted {
			result.Failed = append(result.Failed, FailedCity{
				ID:    city.ID,
				Name:  city.Name,
				Error: fmt.Sprintf("staging city is %s, not approved", city.Status),
			})
			continue
		}

		if err := s.commitCityWithRetry(writeCtx, handle, i+1, total, city); err != nil {
			logger.Errorf(ctx, "commit city %s: %s", city.Name, err.Error())
			result.Failed = append(result.Failed, FailedCity{ID: city.ID, Name: city.Name, Error: err.Error()})
			continue
		}

		result.Committed = append(result.Committed, city.Name)
	}

	status := domain.OperationSuccess
	if len(result.Failed) > 0 {
		status = domain.OperationFailed
	}

	failedNames := make([]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failedNames = append(failedNames, f.Name)
	}
	details := domain.Details{
		"committed": result.Committed,
		"failed":    failedNames,
	}
	if err := s.store.FinishOperation(context.Background(), opID, status, details); err != nil {
		logger.Errorf(ctx, "finish commit operation: %s", err.Error())
	}

	handle.finish(result)

	// the finished handle stays reattachable for a while, then goes away
	time.AfterFunc(s.handleRetention, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handles, handle.BatchID)
	})
}

func (s *Service) commitCityWithRetry(ctx context.Context, handle *Handle, current, total int, city *domain.StagingCity) error {
	attempt := 0

	return backoff.Retry(
		func() error {
			attempt++
			if attempt > 1 {
				handle.publish(Progress{
					BatchID:      handle.BatchID,
					Current:      current,
					Total:        total,
					CityName:     city.Name,
					RetryAttempt: attempt,
					RetryMax:     s.retryMax,
				})
			}

			return s.commitCity(ctx, city)
		},
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryInterval), uint64(s.retryMax-1)),
			ctx,
		),
	)
}

// commitCity is idempotent: all production writes are upserts keyed by
// external id and the snapshot is replaced wholesale, so re-running it for
// an already-committed city changes nothing.
func (s *Service) commitCity(ctx context.Context, staged *domain.StagingCity) error {
	city, err := s.store.UpsertCity(ctx, &domain.City{
		ExternalID:  staged.ExternalID,
		Name:        staged.Name,
		CountryCode: staged.CountryCode,
	})
	if err != nil {
		return fmt.Errorf("store.UpsertCity: %w", err)
	}

	entries := make([]*domain.SnapshotEntry, 0, staged.AreaCount())

	for _, stagedDistrict := range staged.Districts {
		district, err := s.store.UpsertDistrict(ctx, &domain.District{
			CityID:     city.ID,
			ExternalID: stagedDistrict.ExternalID,
			Name:       stagedDistrict.Name,
		})
		if err != nil {
			return fmt.Errorf("store.UpsertDistrict, district-%s: %w", stagedDistrict.ExternalID, err)
		}

		areas := make([]domain.Area, 0, len(stagedDistrict.Areas))
		for _, stagedArea := range stagedDistrict.Areas {
			areas = append(areas, domain.Area{
				ExternalID: stagedArea.ExternalID,
				Name:       stagedArea.Name,
				IsDelivery: stagedArea.IsDelivery,
				Geofence:   stagedArea.Geofence,
			})

			entries = append(entries, &domain.SnapshotEntry{
				CityExternalID:     staged.ExternalID,
				CityName:           staged.Name,
				CountryCode:        staged.CountryCode,
				DistrictExternalID: stagedDistrict.ExternalID,
				DistrictName:       stagedDistrict.Name,
				AreaExternalID:     stagedArea.ExternalID,
				AreaName:           stagedArea.Name,
				IsDelivery:         stagedArea.IsDelivery,
				Geofence:           stagedArea.Geofence,
			})
		}

		if err = s.store.UpsertAreas(ctx, district.ID, areas); err != nil {
			return fmt.Errorf("store.UpsertAreas, district-%s: %w", stagedDistrict.ExternalID, err)
		}
	}

	if err = s.store.ReplaceCitySnapshot(ctx, staged.ExternalID, entries); err != nil {
		return fmt.Errorf("store.ReplaceCitySnapshot: %w", err)
	}

	if staged.Status == domain.StagingStatusApproved {
		updated, err := s.store.UpdateStagingStatus(ctx, staged.ID, domain.StagingStatusApproved, domain.StagingStatusCommitted)
		if err != nil {
			return fmt.Errorf("store.UpdateStagingStatus: %w", err)
		}
		if !updated {
			// raced with another writer; the upserts above are harmless
			logger.Warnf(ctx, "staging city %d left approved state during commit", staged.ID)
		}
	}

	return nil
}
