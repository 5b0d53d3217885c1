package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/logger"
)

var snapshotColumns = []string{
	"id", "city_external_id", "city_name", "country_code",
	"district_external_id", "district_name",
	"area_external_id", "area_name", "is_delivery", "geofence", "snapshot_at",
}

// ReplaceCitySnapshot swaps out all snapshot rows of one city in a single
// statement pair. Wholesale replacement keeps the snapshot internally
// consistent even if a later city in the same commit batch fails.
func (s *store) ReplaceCitySnapshot(ctx context.Context, cityExternalID string, entries []*domain.SnapshotEntry) error {
	deleteQuery := builder().Delete(tableSnapshotEntries).
		Where(sq.Eq{"city_external_id": cityExternalID})

	if _, err := s.pool.Execx(ctx, deleteQuery); err != nil {
		logger.Errorf(ctx, "delete city snapshot, city-%s: %s", cityExternalID, err.Error())
		return fmt.Errorf("delete city snapshot: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	query := builder().Insert(tableSnapshotEntries).
		Columns(snapshotColumns[1:]...)

	for _, entry := range entries {
		snapshotAt := entry.SnapshotAt
		if snapshotAt.IsZero() {
			snapshotAt = now
		}
		query = query.Values(
			entry.CityExternalID, entry.CityName, entry.CountryCode,
			entry.DistrictExternalID, entry.DistrictName,
			entry.AreaExternalID, entry.AreaName, entry.IsDelivery, entry.Geofence, snapshotAt,
		)
	}

	if _, err := s.pool.Execx(ctx, query); err != nil {
		logger.Errorf(ctx, "insert city snapshot, city-%s: %s", cityExternalID, err.Error())
		return fmt.Errorf("insert city snapshot: %w", err)
	}

	return nil
}

func (s *store) UpdateSnapshotGeofence(ctx context.Context, areaExternalID string, geofence *domain.Geofence) error {
	query := builder().Update(tableSnapshotEntries).
		Set("geofence", geofence).
		Set("snapshot_at", sq.Expr("now()")).
		Where(sq.Eq{"area_external_id": areaExternalID})

	tag, err := s.pool.Execx(ctx, query)
	if err != nil {
		return fmt.Errorf("update snapshot geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("snapshot entry %s: %w", areaExternalID, constants.ErrDBNotFound)
	}

	return nil
}

func (s *store) ListSnapshot(ctx context.Context) ([]*domain.SnapshotEntry, error) {
	query := builder().Select(snapshotColumns...).
		From(tableSnapshotEntries).
		OrderBy("city_external_id, district_external_id, area_external_id")

	var selected []*domain.SnapshotEntry
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	return selected, nil
}

func (s *store) CountSnapshot(ctx context.Context) (int64, error) {
	query := builder().Select("count(*) as cnt").From(tableSnapshotEntries)

	var selected struct {
		Cnt int64 `db:"cnt"`
	}
	err := s.pool.Getx(ctx, &selected, query)
	if err != nil {
		return 0, err
	}

	return selected.Cnt, nil
}
