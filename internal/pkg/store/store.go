package store

import (
	"context"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/store/xpgx"
)

type Pool = xpgx.Pool

type Store interface {
	// production; written only through the commit path and geo sync
	UpsertCity(ctx context.Context, city *domain.City) (*domain.City, error)
	UpsertDistrict(ctx context.Context, district *domain.District) (*domain.District, error)
	UpsertAreas(ctx context.Context, districtID int64, areas []domain.Area) error
	UpdateAreaGeofence(ctx context.Context, areaExternalID string, geofence *domain.Geofence) error
	ListAreas(ctx context.Context) ([]*domain.Area, error)
	ListDeliveryAreas(ctx context.Context) ([]*domain.DeliveryArea, error)
	CountAreas(ctx context.Context) (int64, error)

	// staging
	UpsertStagingCity(ctx context.Context, city *domain.StagingCity) (*domain.StagingCity, error)
	GetStagingCity(ctx context.Context, id int64) (*domain.StagingCity, error)
	ListStagingByStatus(ctx context.Context, status domain.StagingStatus) ([]*domain.StagingCity, error)
	ListStagingByIDs(ctx context.Context, ids []int64) ([]*domain.StagingCity, error)
	UpdateStagingStatus(ctx context.Context, id int64, from, to domain.StagingStatus) (bool, error)
	StagingCounts(ctx context.Context) (map[domain.StagingStatus]int64, error)

	// snapshot; replaced per city, never mutated row by row
	ReplaceCitySnapshot(ctx context.Context, cityExternalID string, entries []*domain.SnapshotEntry) error
	UpdateSnapshotGeofence(ctx context.Context, areaExternalID string, geofence *domain.Geofence) error
	ListSnapshot(ctx context.Context) ([]*domain.SnapshotEntry, error)
	CountSnapshot(ctx context.Context) (int64, error)

	// operation log, append-only
	StartOperation(ctx context.Context, opType domain.OperationType, batchID string) (*domain.OperationLogEntry, error)
	FinishOperation(ctx context.Context, id int64, status domain.OperationStatus, details domain.Details) error
	RecordOperation(ctx context.Context, opType domain.OperationType, batchID string, status domain.OperationStatus, details domain.Details) error
	ListOperations(ctx context.Context, limit int) ([]*domain.OperationLogEntry, error)
	ListOperationsByBatch(ctx context.Context, batchID string) ([]*domain.OperationLogEntry, error)
}

type store struct {
	pool Pool
}

func NewStore(pool Pool) Store {
	return &store{pool}
}
