package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/logger"
)

var (
	cityColumns     = []string{"id", "external_id", "name", "country_code", "created_at", "updated_at"}
	districtColumns = []string{"id", "city_id", "external_id", "name", "created_at", "updated_at"}
	areaColumns     = []string{"id", "district_id", "external_id", "name", "is_delivery", "geofence", "created_at", "updated_at"}
)

func (s *store) UpsertCity(ctx context.Context, city *domain.City) (*domain.City, error) {
	query := builder().Insert(tableCities).
		Columns("external_id", "name", "country_code").
		Values(city.ExternalID, city.Name, city.CountryCode).
		Suffix(`on conflict (external_id) do update set name=excluded.name, country_code=excluded.country_code, updated_at=now()`)

	_, err := s.pool.Execx(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("upsert city: %w", err)
	}

	selectQuery := builder().Select(cityColumns...).
		From(tableCities).
		Where(sq.Eq{"external_id": city.ExternalID})

	var selected domain.City
	err = s.pool.Getx(ctx, &selected, selectQuery)
	if err != nil {
		return nil, wrapErr(err)
	}

	return &selected, nil
}

func (s *store) UpsertDistrict(ctx context.Context, district *domain.District) (*domain.District, error) {
	query := builder().Insert(tableDistricts).
		Columns("city_id", "external_id", "name").
		Values(district.CityID, district.ExternalID, district.Name).
		Suffix(`on conflict (external_id) do update set city_id=excluded.city_id, name=excluded.name, updated_at=now()`)

	_, err := s.pool.Execx(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("upsert district: %w", err)
	}

	selectQuery := builder().Select(districtColumns...).
		From(tableDistricts).
		Where(sq.Eq{"external_id": district.ExternalID})

	var selected domain.District
	err = s.pool.Getx(ctx, &selected, selectQuery)
	if err != nil {
		return nil, wrapErr(err)
	}

	return &selected, nil
}

func (s *store) UpsertAreas(ctx context.Context, districtID int64, areas []domain.Area) error {
	if len(areas) == 0 {
		return nil
	}

	query := builder().Insert(tableAreas).
		Columns("district_id", "external_id", "name", "is_delivery", "geofence")

	for _, area := range areas {
		query = query.Values(districtID, area.ExternalID, area.Name, area.IsDelivery, area.Geofence)
	}

	query = query.Suffix(`
on conflict (external_id)
do update
set
	district_id = excluded.district_id,
	name = excluded.name,
	is_delivery = excluded.is_delivery,
	geofence = excluded.geofence,
	updated_at = now()`)

	if _, err := s.pool.Execx(ctx, query); err != nil {
		logger.Errorf(ctx, "upsert areas, district_id-%d: %s", districtID, err.Error())
		return err
	}

	return nil
}

func (s *store) UpdateAreaGeofence(ctx context.Context, areaExternalID string, geofence *domain.Geofence) error {
	query := builder().Update(tableAreas).
		Set("geofence", geofence).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"external_id": areaExternalID})

	tag, err := s.pool.Execx(ctx, query)
	if err != nil {
		return fmt.Errorf("update area geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("area %s: %w", areaExternalID, constants.ErrDBNotFound)
	}

	return nil
}

func (s *store) ListAreas(ctx context.Context) ([]*domain.Area, error) {
	query := builder().Select(areaColumns...).
		From(tableAreas).
		OrderBy("external_id")

	var selected []*domain.Area
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		return nil, err
	}

	return selected, nil
}

func (s *store) ListDeliveryAreas(ctx context.Context) ([]*domain.DeliveryArea, error) {
	query := builder().Select(
		"a.external_id as area_external_id",
		"a.name as area_name",
		"d.name as district_name",
		"c.name as city_name",
		"a.is_delivery",
		"a.geofence").
		From("areas a").
		Join("districts d on d.id=a.district_id").
		Join("cities c on c.id=d.city_id").
		Where(sq.And{
			sq.Eq{"a.is_delivery": true},
			sq.NotEq{"a.geofence": nil},
		})

	var selected []*domain.DeliveryArea
	err := s.pool.Selectx(ctx, &selected, query)
	if err != nil {
		logger.Error(ctx, err.Error())
		return nil, err
	}

	return selected, nil
}

func (s *store) CountAreas(ctx context.Context) (int64, error) {
	query := builder().Select("count(*) as cnt").From(tableAreas)

	var selected struct {
		Cnt int64 `db:"cnt"`
	}
	err := s.pool.Getx(ctx, &selected, query)
	if err != nil {
		return 0, err
	}

	return selected.Cnt, nil
}
