// Package staging manages the review queue of candidate cities. Status
// transitions are monotonic: pending→{approved,rejected}, approved→committed;
// rejected and committed are terminal.
package staging

import (
	"context"
	"fmt"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/logger"
	"github.com/coverhub/geostaging/internal/pkg/store"
	"github.com/google/uuid"
)

type Service struct {
	store store.Store
}

func NewService(store store.Store) *Service {
	return &Service{store: store}
}

// CreateStagingCity upserts a candidate keyed by external id. A pending or
// approved row for the same id is refreshed in place, never duplicated.
func (s *Service) CreateStagingCity(ctx context.Context, candidate *domain.StagingCity) (*domain.StagingCity, error) {
	staged, err := s.store.UpsertStagingCity(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("store.UpsertStagingCity: %w", err)
	}

	return staged, nil
}

func (s *Service) Approve(ctx context.Context, cityID int64) error {
	return s.transition(ctx, cityID, domain.StagingStatusApproved, domain.OperationApprove)
}

func (s *Service) Reject(ctx context.Context, cityID int64) error {
	return s.transition(ctx, cityID, domain.StagingStatusRejected, domain.OperationReject)
}

func (s *Service) transition(ctx context.Context, cityID int64, to domain.StagingStatus, opType domain.OperationType) error {
	city, err := s.store.GetStagingCity(ctx, cityID)
	if err != nil {
		return fmt.Errorf("store.GetStagingCity: %w", err)
	}

	if city.Status != domain.StagingStatusPending {
		return fmt.Errorf("staging city %d is %s, not pending: %w", cityID, city.Status, constants.ErrInvalidTransition)
	}

	updated, err := s.store.UpdateStagingStatus(ctx, cityID, domain.StagingStatusPending, to)
	if err != nil {
		return fmt.Errorf("store.UpdateStagingStatus: %w", err)
	}
	if !updated {
		// lost the race against a concurrent transition
		return fmt.Errorf("staging city %d changed status concurrently: %w", cityID, constants.ErrInvalidTransition)
	}

	details := domain.Details{
		"city_id":     cityID,
		"external_id": city.ExternalID,
		"name":        city.Name,
	}
	if err = s.store.RecordOperation(ctx, opType, uuid.NewString(), domain.OperationSuccess, details); err != nil {
		logger.Errorf(ctx, "record %s operation, city-%d: %s", opType, cityID, err.Error())
	}

	return nil
}

func (s *Service) ListByStatus(ctx context.Context, status domain.StagingStatus) ([]*domain.StagingCity, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown staging status %q", status)
	}

	cities, err := s.store.ListStagingByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("store.ListStagingByStatus: %w", err)
	}

	return cities, nil
}
