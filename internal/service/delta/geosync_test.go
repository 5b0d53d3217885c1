package delta

import (
	"context"
	"testing"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRunGeoSyncUpdatesKnownAreas(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	// an existing production area with the old geometry
	city, err := fake.UpsertCity(ctx, &domain.City{ExternalID: "msk", Name: "Moscow"})
	require.NoError(t, err)
	district, err := fake.UpsertDistrict(ctx, &domain.District{CityID: city.ID, ExternalID: "msk-center", Name: "Center"})
	require.NoError(t, err)
	require.NoError(t, fake.UpsertAreas(ctx, district.ID, []domain.Area{{
		ExternalID: "msk-center-arbat",
		Name:       "Arbat",
		IsDelivery: true,
		Geofence:   &domain.Geofence{Geometry: square(0).Geometry()},
	}}))
	require.NoError(t, fake.ReplaceCitySnapshot(ctx, "msk", []*domain.SnapshotEntry{
		snapshotEntry("msk", "Moscow", "msk-center", "Center", "msk-center-arbat", "Arbat", square(0)),
	}))

	client := &clientMock{}
	client.On("FetchCities", mock.Anything).Return([]*dto.ProviderCity{
		providerCity("msk", "Moscow", dto.ProviderDistrict{
			ExternalID: "msk-center",
			Name:       "Center",
			Areas: []dto.ProviderArea{
				{ExternalID: "msk-center-arbat", Name: "Arbat", IsDelivery: true, Geofence: square(5)},
			},
		}),
	}, nil)

	svc := NewService(fake, client, opguard.New())

	result, err := svc.RunGeoSync(ctx, "batch-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"msk-center-arbat"}, result.UpdatedAreas)
	assert.Empty(t, result.StagedCities)

	area, ok := fake.Area("msk-center-arbat")
	require.True(t, ok)
	require.NotNil(t, area.Geofence)
	assert.True(t, geofenceEqual(area.Geofence, &domain.Geofence{Geometry: square(5).Geometry()}))

	// the snapshot follows so the next delta check stays quiet
	snapshot, err := fake.ListSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.True(t, geofenceEqual(snapshot[0].Geofence, &domain.Geofence{Geometry: square(5).Geometry()}))
}

func TestRunGeoSyncStagesUnknownAreas(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	client := &clientMock{}
	client.On("FetchCities", mock.Anything).Return([]*dto.ProviderCity{
		providerCity("kzn", "Kazan", dto.ProviderDistrict{
			ExternalID: "kzn-center",
			Name:       "Center",
			Areas: []dto.ProviderArea{
				{ExternalID: "kzn-center-kremlin", Name: "Kremlin", IsDelivery: true, Geofence: square(0)},
			},
		}),
	}, nil)

	svc := NewService(fake, client, opguard.New())

	result, err := svc.RunGeoSync(ctx, "batch-1")
	require.NoError(t, err)

	assert.Empty(t, result.UpdatedAreas)
	assert.Equal(t, []string{"kzn"}, result.StagedCities)

	// unknown coverage goes through review, never straight to production
	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "kzn", pending[0].ExternalID)
	assert.Equal(t, sourceGeoSync, pending[0].Source)

	_, ok := fake.Area("kzn-center-kremlin")
	assert.False(t, ok)
}

func TestRunGeoSyncSkipsMatchingGeometry(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	city, err := fake.UpsertCity(ctx, &domain.City{ExternalID: "msk", Name: "Moscow"})
	require.NoError(t, err)
	district, err := fake.UpsertDistrict(ctx, &domain.District{CityID: city.ID, ExternalID: "msk-center", Name: "Center"})
	require.NoError(t, err)
	require.NoError(t, fake.UpsertAreas(ctx, district.ID, []domain.Area{{
		ExternalID: "msk-center-arbat",
		Name:       "Arbat",
		IsDelivery: true,
		Geofence:   &domain.Geofence{Geometry: square(0).Geometry()},
	}}))

	client := &clientMock{}
	client.On("FetchCities", mock.Anything).Return([]*dto.ProviderCity{
		providerCity("msk", "Moscow", dto.ProviderDistrict{
			ExternalID: "msk-center",
			Name:       "Center",
			Areas: []dto.ProviderArea{
				{ExternalID: "msk-center-arbat", Name: "Arbat", IsDelivery: true, Geofence: square(0)},
			},
		}),
	}, nil)

	svc := NewService(fake, client, opguard.New())

	result, err := svc.RunGeoSync(ctx, "batch-1")
	require.NoError(t, err)

	assert.Empty(t, result.UpdatedAreas)
	assert.Empty(t, result.StagedCities)
}
