package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/domain/dto"
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

const directoryHTML = `<html><body>
<section class="country" data-country="ru">
  <ul class="cities">
    <li><a href="/coverage/msk">Moscow</a></li>
    <li><a href="/coverage/spb">Saint Petersburg</a></li>
  </ul>
</section>
</body></html>`

const cityHTML = `<html><body>
<div class="district">
  <h3>Center</h3>
  <ul class="areas">
    <li data-delivery>Arbat</li>
    <li>Khamovniki</li>
  </ul>
</div>
</body></html>`

func coverageServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/coverage", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(directoryHTML))
	})
	mux.HandleFunc("/coverage/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(cityHTML))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestRunAiImportStagesDiscoveredCities(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	server := coverageServer(t)

	client := &clientMock{}
	client.On("FetchCity", mock.Anything, "msk").Return(&dto.ProviderCity{
		ExternalID: "msk",
		Name:       "Moscow",
		Districts: []dto.ProviderDistrict{{
			ExternalID: "msk-center",
			Name:       "Center",
			Areas:      []dto.ProviderArea{{ExternalID: "msk-center-arbat", Name: "Arbat", IsDelivery: true}},
		}},
	}, nil)
	// spb is not in the structured API yet, the city page gets scraped
	client.On("FetchCity", mock.Anything, "spb").Return(nil, errors.New("404"))

	svc := NewService(fake, client, opguard.New(), server.URL)

	result, err := svc.RunAiImport(ctx, "batch-1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"msk", "spb"}, result.StagedCities)
	assert.Empty(t, result.FailedCities)

	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	for _, city := range pending {
		assert.Equal(t, sourceAiImport, city.Source)
		assert.Equal(t, "ru", city.CountryCode)
	}

	ops := fake.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationAiImport, ops[0].Type)
	assert.Equal(t, domain.OperationSuccess, ops[0].Status)
}

func TestRunAiImportScrapedCityShape(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	server := coverageServer(t)

	client := &clientMock{}
	client.On("FetchCity", mock.Anything, mock.Anything).Return(nil, errors.New("404"))

	svc := NewService(fake, client, opguard.New(), server.URL)

	_, err := svc.RunAiImport(ctx, "batch-1")
	require.NoError(t, err)

	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var msk *domain.StagingCity
	for _, city := range pending {
		if city.ExternalID == "msk" {
			msk = city
		}
	}
	require.NotNil(t, msk)

	require.Len(t, msk.Districts, 1)
	district := msk.Districts[0]
	assert.Equal(t, "Center", district.Name)
	assert.Equal(t, "msk:center", district.ExternalID)

	require.Len(t, district.Areas, 2)
	byName := map[string]domain.StagedArea{}
	for _, area := range district.Areas {
		byName[area.Name] = area
	}
	assert.True(t, byName["Arbat"].IsDelivery)
	assert.False(t, byName["Khamovniki"].IsDelivery)
	assert.Equal(t, "msk:center:arbat", byName["Arbat"].ExternalID)
}

func TestRunAiImportIsolatesCityFailures(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/coverage", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(directoryHTML))
	})
	mux.HandleFunc("/coverage/msk", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(cityHTML))
	})
	mux.HandleFunc("/coverage/spb", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := &clientMock{}
	client.On("FetchCity", mock.Anything, mock.Anything).Return(nil, errors.New("404"))

	svc := NewService(fake, client, opguard.New(), server.URL)

	result, err := svc.RunAiImport(ctx, "batch-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"msk"}, result.StagedCities)
	require.Len(t, result.FailedCities, 1)
	assert.Contains(t, result.FailedCities, "spb")

	pending, err := fake.ListStagingByStatus(ctx, domain.StagingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "msk", pending[0].ExternalID)
}

func TestRunAiImportDirectoryFetchFailure(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	svc := NewService(fake, &clientMock{}, opguard.New(), server.URL)

	_, err := svc.RunAiImport(ctx, "batch-1")
	require.Error(t, err)

	ops := fake.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationFailed, ops[0].Status)
}
