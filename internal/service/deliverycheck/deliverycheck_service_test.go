package deliverycheck

import (
	"context"
	"testing"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/store/storetest"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedArea(t *testing.T, fake *storetest.Fake, isDelivery bool, geometry orb.Geometry) {
	t.Helper()
	ctx := context.Background()

	city, err := fake.UpsertCity(ctx, &domain.City{ExternalID: "msk", Name: "Moscow"})
	require.NoError(t, err)
	district, err := fake.UpsertDistrict(ctx, &domain.District{CityID: city.ID, ExternalID: "msk-center", Name: "Center"})
	require.NoError(t, err)

	var fence *domain.Geofence
	if geometry != nil {
		fence = &domain.Geofence{Geometry: geometry}
	}
	require.NoError(t, fake.UpsertAreas(ctx, district.ID, []domain.Area{{
		ExternalID: "msk-center-arbat",
		Name:       "Arbat",
		IsDelivery: isDelivery,
		Geofence:   fence,
	}}))
}

func unitSquare() orb.Geometry {
	return orb.Polygon{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}}
}

func TestCheckPointInsideDeliveryArea(t *testing.T) {
	fake := storetest.New()
	seedArea(t, fake, true, unitSquare())

	svc := NewService(fake)

	result, err := svc.Check(context.Background(), 0.5, 0.5)
	require.NoError(t, err)

	assert.True(t, result.Deliverable)
	assert.Equal(t, "msk-center-arbat", result.AreaExternalID)
	assert.Equal(t, "Arbat", result.AreaName)
	assert.Equal(t, "Center", result.DistrictName)
	assert.Equal(t, "Moscow", result.CityName)
}

func TestCheckPointOutside(t *testing.T) {
	fake := storetest.New()
	seedArea(t, fake, true, unitSquare())

	svc := NewService(fake)

	result, err := svc.Check(context.Background(), 5, 5)
	require.NoError(t, err)

	assert.False(t, result.Deliverable)
	assert.Empty(t, result.AreaExternalID)
}

func TestCheckIgnoresNonDeliveryAreas(t *testing.T) {
	fake := storetest.New()
	seedArea(t, fake, false, unitSquare())

	svc := NewService(fake)

	result, err := svc.Check(context.Background(), 0.5, 0.5)
	require.NoError(t, err)

	assert.False(t, result.Deliverable)
}

func TestCheckMultiPolygon(t *testing.T) {
	fake := storetest.New()
	seedArea(t, fake, true, orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{{{10, 10}, {11, 10}, {11, 11}, {10, 11}, {10, 10}}},
	})

	svc := NewService(fake)

	result, err := svc.Check(context.Background(), 10.5, 10.5)
	require.NoError(t, err)
	assert.True(t, result.Deliverable)

	result, err = svc.Check(context.Background(), 5, 5)
	require.NoError(t, err)
	assert.False(t, result.Deliverable)
}
