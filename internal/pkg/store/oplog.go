package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/coverhub/geostaging/internal/domain"
)

var operationColumns = []string{"id", "batch_id", "operation_type", "status", "started_at", "completed_at", "details"}

func (s *store) StartOperation(ctx context.Context, opType domain.OperationType, batchID string) (*domain.OperationLogEntry, error) {
	query := builder().Insert(tableOperationLog).
		Columns("batch_id", "operation_type", "status").
		Values(batchID, opType, domain.OperationStarted).
		Suffix("RETURNING id")

	var inserted struct {
		ID int64 `db:"id"`
	}
	if err := s.pool.Getx(ctx, &inserted, query); err != nil {
		return nil, fmt.Errorf("insert operation: %w", err)
	}

	selectQuery := builder().Select(operationColumns...).
		From(tableOperationLog).
		Where(sq.Eq{"id": inserted.ID})

	var selected domain.OperationLogEntry
	if err := s.pool.Getx(ctx, &selected, selectQuery); err != nil {
		return nil, wrapErr(err)
	}

	return &selected, nil
}

func (s *store) FinishOperation(ctx context.Context, id int64, status domain.OperationStatus, details domain.Details) error {
	query := builder().Update(tableOperationLog).
		Set("status", status).
		Set("completed_at", sq.Expr("now()")).
		Set("details", details).
		Where(sq.And{
			sq.Eq{"id": id},
			sq.Eq{"status": domain.OperationStarted},
		})

	tag, err := s.pool.Execx(ctx, query)
	if err != nil {
		return fmt.Errorf("finish operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("operation %d is not in started state", id)
	}

	return nil
}

// RecordOperation writes a single already-terminal entry. Used for the
// instantaneous approve/reject transitions.
func (s *store) RecordOperation(ctx context.Context, opType domain.OperationType, batchID string, status domain.OperationStatus, details domain.Details) error {
	query := builder().Insert(tableOperationLog).
		Columns("batch_id", "operation_type", "status", "completed_at", "details").
		Values(batchID, opType, status, sq.Expr("now()"), details)

	if _, err := s.pool.Execx(ctx, query); err != nil {
		return fmt.Errorf("record operation: %w", err)
	}

	return nil
}

func (s *store) ListOperations(ctx context.Context, limit int) ([]*domain.OperationLogEntry, error) {
	query := builder().Select(operationColumns...).
		From(tableOperationLog).
		OrderBy("started_at desc").
		Limit(uint64(limit))

	var selected []*domain.OperationLogEntry
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	return selected, nil
}

func (s *store) ListOperationsByBatch(ctx context.Context, batchID string) ([]*domain.OperationLogEntry, error) {
	query := builder().Select(operationColumns...).
		From(tableOperationLog).
		Where(sq.Eq{"batch_id": batchID}).
		OrderBy("started_at")

	var selected []*domain.OperationLogEntry
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	return selected, nil
}
