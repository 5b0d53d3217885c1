// Package status derives the pipeline's recommended next action from store
// counts. Pure read, no side effects.
package status

import (
	"context"
	"fmt"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/store"
)

type Service struct {
	store store.Store
}

func NewService(store store.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Status(ctx context.Context) (*domain.PipelineStatus, error) {
	snapshotCount, err := s.store.CountSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.CountSnapshot: %w", err)
	}

	areaCount, err := s.store.CountAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.CountAreas: %w", err)
	}

	stagingCounts, err := s.store.StagingCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.StagingCounts: %w", err)
	}

	counts := domain.StageCounts{
		SnapshotEntries:  snapshotCount,
		ProductionAreas:  areaCount,
		StagingPending:   stagingCounts[domain.StagingStatusPending],
		StagingApproved:  stagingCounts[domain.StagingStatusApproved],
		StagingCommitted: stagingCounts[domain.StagingStatusCommitted],
	}

	return &domain.PipelineStatus{
		Stages:     counts,
		NextAction: Next(counts),
	}, nil
}

// Next maps counts to exactly one recommendation; the first matching rule
// wins.
func Next(c domain.StageCounts) domain.NextAction {
	switch {
	case c.StagingApproved > 0:
		return domain.NextAction{
			Type:    domain.ActionCommit,
			Urgency: domain.UrgencyHigh,
			Reason:  fmt.Sprintf("%d approved cities are waiting to be committed", c.StagingApproved),
		}
	case c.StagingPending > 0:
		return domain.NextAction{
			Type:    domain.ActionReview,
			Urgency: domain.UrgencyMedium,
			Reason:  fmt.Sprintf("%d staged cities need review", c.StagingPending),
		}
	case c.SnapshotEntries == 0 && c.ProductionAreas == 0:
		return domain.NextAction{
			Type:    domain.ActionImport,
			Urgency: domain.UrgencyMedium,
			Reason:  "no coverage data yet, run an initial import",
		}
	case c.SnapshotEntries > 0 && c.ProductionAreas > 0:
		return domain.NextAction{
			Type:    domain.ActionSync,
			Urgency: domain.UrgencyLow,
			Reason:  "production is populated, periodic delta check recommended",
		}
	default:
		return domain.NextAction{
			Type:    domain.ActionNone,
			Urgency: domain.UrgencyLow,
			Reason:  "nothing to do",
		}
	}
}

func (s *Service) OperationLog(ctx context.Context, limit int) ([]*domain.OperationLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := s.store.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("store.ListOperations: %w", err)
	}

	return entries, nil
}

func (s *Service) OperationsByBatch(ctx context.Context, batchID string) ([]*domain.OperationLogEntry, error) {
	entries, err := s.store.ListOperationsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("store.ListOperationsByBatch: %w", err)
	}

	return entries, nil
}
