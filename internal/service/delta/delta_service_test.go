package delta

import (
	"context"
	"testing"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clientMock struct {
	mock.Mock
}

func (m *clientMock) FetchCities(ctx context.Context) ([]*dto.ProviderCity, error) {
	args := m.Called(ctx)
	cities, _ := args.Get(0).([]*dto.ProviderCity)
	return cities, args.Error(1)
}

func (m *clientMock) FetchCity(ctx context.Context, externalID string) (*dto.ProviderCity, error) {
	args := m.Called(ctx, externalID)
	city, _ := args.Get(0).(*dto.ProviderCity)
	return city, args.Error(1)
}

func TestComputeDeltaStagesAffectedCities(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

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

	result, err := svc.ComputeDelta(ctx, "batch-1")
	require.NoError(t, err)

	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, []string{"msk"}, result.StagedCities)

	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "msk", pending[0].ExternalID)
	assert.Equal(t, sourceDeltaCheck, pending[0].Source)

	ops := fake.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationDeltaCheck, ops[0].Type)
	assert.Equal(t, domain.OperationSuccess, ops[0].Status)
	assert.Equal(t, "batch-1", ops[0].BatchID)
}

func TestComputeDeltaFetchErrorFailsOperation(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	client := &clientMock{}
	client.On("FetchCities", mock.Anything).Return(nil, constants.ErrExternalFetch)

	svc := NewService(fake, client, opguard.New())

	_, err := svc.ComputeDelta(ctx, "batch-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrExternalFetch)

	// nothing staged, the failure is recorded
	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	ops := fake.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationFailed, ops[0].Status)
}

func TestComputeDeltaBusy(t *testing.T) {
	guard := opguard.New()
	release, err := guard.Acquire(domain.OperationDeltaCheck, "other")
	require.NoError(t, err)
	defer release()

	svc := NewService(storetest.New(), &clientMock{}, guard)

	_, err = svc.ComputeDelta(context.Background(), "batch-1")
	assert.ErrorIs(t, err, constants.ErrBusy)
}

func TestComputeDeltaSecondRunIsEmpty(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	cities := []*dto.ProviderCity{
		providerCity("msk", "Moscow", dto.ProviderDistrict{
			ExternalID: "msk-center",
			Name:       "Center",
			Areas: []dto.ProviderArea{
				{ExternalID: "msk-center-arbat", Name: "Arbat", IsDelivery: true, Geofence: square(0)},
			},
		}),
	}
	client := &clientMock{}
	client.On("FetchCities", mock.Anything).Return(cities, nil)

	// a committed snapshot matching the provider exactly
	require.NoError(t, fake.ReplaceCitySnapshot(ctx, "msk", []*domain.SnapshotEntry{
		snapshotEntry("msk", "Moscow", "msk-center", "Center", "msk-center-arbat", "Arbat", square(0)),
	}))

	svc := NewService(fake, client, opguard.New())

	result, err := svc.ComputeDelta(ctx, "batch-2")
	require.NoError(t, err)

	assert.True(t, result.Empty())
	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
