package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/logger"
)

var stagingColumns = []string{"id", "external_id", "name", "country_code", "status", "source", "districts", "created_at", "updated_at"}

// UpsertStagingCity creates a pending candidate or refreshes the payload of
// the active (pending or approved) row for the same external id. Terminal
// rows (rejected, committed) are immutable history; once a row leaves the
// active set, the next cycle gets a fresh pending row alongside it. The
// conflict target is the partial unique index over active rows.
func (s *store) UpsertStagingCity(ctx context.Context, city *domain.StagingCity) (*domain.StagingCity, error) {
	status := city.Status
	if status == "" {
		status = domain.StagingStatusPending
	}

	query := builder().Insert(tableStagingCities).
		Columns("external_id", "name", "country_code", "status", "source", "districts").
		Values(city.ExternalID, city.Name, city.CountryCode, status, city.Source, city.Districts).
		Suffix(`
on conflict (external_id) where status in ('pending', 'approved')
do update
set
	name = excluded.name,
	country_code = excluded.country_code,
	source = excluded.source,
	districts = excluded.districts,
	updated_at = now()`)

	_, err := s.pool.Execx(ctx, query)
	if err != nil {
		logger.Errorf(ctx, "upsert staging city, external_id-%s: %s", city.ExternalID, err.Error())
		return nil, fmt.Errorf("upsert staging city: %w", err)
	}

	selectQuery := builder().Select(stagingColumns...).
		From(tableStagingCities).
		Where(sq.And{
			sq.Eq{"external_id": city.ExternalID},
			sq.Eq{"status": []domain.StagingStatus{domain.StagingStatusPending, domain.StagingStatusApproved}},
		})

	var selected domain.StagingCity
	err = s.pool.Getx(ctx, &selected, selectQuery)
	if err != nil {
		return nil, wrapErr(err)
	}

	return &selected, nil
}

func (s *store) GetStagingCity(ctx context.Context, id int64) (*domain.StagingCity, error) {
	query := builder().Select(stagingColumns...).
		From(tableStagingCities).
		Where(sq.Eq{"id": id})

	var selected domain.StagingCity
	err := s.pool.Getx(ctx, &selected, query)
	if err != nil {
		return nil, wrapErr(err)
	}

	return &selected, nil
}

func (s *store) ListStagingByStatus(ctx context.Context, status domain.StagingStatus) ([]*domain.StagingCity, error) {
	query := builder().Select(stagingColumns...).
		From(tableStagingCities).
		Where(sq.Eq{"status": status}).
		OrderBy("name")

	var selected []*domain.StagingCity
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	return selected, nil
}

func (s *store) ListStagingByIDs(ctx context.Context, ids []int64) ([]*domain.StagingCity, error) {
	query := builder().Select(stagingColumns...).
		From(tableStagingCities).
		Where(sq.Eq{"id": ids}).
		OrderBy("name")

	var selected []*domain.StagingCity
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	return selected, nil
}

// UpdateStagingStatus flips status only when the row is currently in the
// expected from status. Reports whether a row was updated, so callers can
// tell a lost race from a missing row.
func (s *store) UpdateStagingStatus(ctx context.Context, id int64, from, to domain.StagingStatus) (bool, error) {
	query := builder().Update(tableStagingCities).
		Set("status", to).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.And{
			sq.Eq{"id": id},
			sq.Eq{"status": from},
		})

	tag, err := s.pool.Execx(ctx, query)
	if err != nil {
		return false, fmt.Errorf("update staging status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *store) StagingCounts(ctx context.Context) (map[domain.StagingStatus]int64, error) {
	query := builder().Select("status", "count(*) as cnt").
		From(tableStagingCities).
		GroupBy("status")

	var selected []struct {
		Status domain.StagingStatus `db:"status"`
		Cnt    int64                `db:"cnt"`
	}
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.StagingStatus]int64, len(selected))
	for _, row := range selected {
		counts[row.Status] = row.Cnt
	}

	return counts, nil
}
