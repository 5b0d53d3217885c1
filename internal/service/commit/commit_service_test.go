package commit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/pkg/opguard"
	"github.com/coverhub/geostaging/internal/pkg/store/storetest"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(fake *storetest.Fake) *Service {
	svc := NewService(fake, opguard.New())
	svc.retryInterval = time.Millisecond
	return svc
}

func stageApprovedCity(t *testing.T, fake *storetest.Fake, externalID, name string) int64 {
	t.Helper()
	ctx := context.Background()

	fence := &domain.Geofence{Geometry: orb.Polygon{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}}}

	staged, err := fake.UpsertStagingCity(ctx, &domain.StagingCity{
		ExternalID:  externalID,
		Name:        name,
		CountryCode: "ru",
		Districts: []domain.StagedDistrict{{
			ExternalID: externalID + "-center",
			Name:       "Center",
			Areas: []domain.StagedArea{{
				ExternalID: externalID + "-center-main",
				Name:       "Main",
				IsDelivery: true,
				Geofence:   fence,
			}},
		}},
	})
	require.NoError(t, err)

	updated, err := fake.UpdateStagingStatus(ctx, staged.ID, domain.StagingStatusPending, domain.StagingStatusApproved)
	require.NoError(t, err)
	require.True(t, updated)

	return staged.ID
}

func waitResult(t *testing.T, handle *Handle) *Result {
	t.Helper()
	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("commit batch did not finish")
	}
	return handle.Result()
}

func TestCommitPromotesApprovedCity(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	id := stageApprovedCity(t, fake, "msk", "Moscow")

	svc := newTestService(fake)

	handle, err := svc.Commit(ctx, []int64{id})
	require.NoError(t, err)

	result := waitResult(t, handle)
	assert.Equal(t, []string{"Moscow"}, result.Committed)
	assert.Empty(t, result.Failed)

	area, ok := fake.Area("msk-center-main")
	require.True(t, ok)
	assert.Equal(t, "Main", area.Name)
	assert.True(t, area.IsDelivery)

	staged, err := fake.GetStagingCity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StagingStatusCommitted, staged.Status)

	count, err := fake.CountSnapshot(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	ops := fake.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationCommit, ops[0].Type)
	assert.Equal(t, domain.OperationSuccess, ops[0].Status)
}

func TestCommitIsolatesFailingCity(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	idA := stageApprovedCity(t, fake, "aaa", "Astrakhan")
	idB := stageApprovedCity(t, fake, "bbb", "Bryansk")
	idC := stageApprovedCity(t, fake, "ccc", "Chita")

	fake.FailCity["bbb"] = errors.New("connection reset")

	svc := newTestService(fake)

	handle, err := svc.Commit(ctx, []int64{idA, idB, idC})
	require.NoError(t, err)

	result := waitResult(t, handle)
	assert.Equal(t, []string{"Astrakhan", "Chita"}, result.Committed)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Bryansk", result.Failed[0].Name)

	// the failing city stays approved and can be retried in a later batch
	staged, err := fake.GetStagingCity(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, domain.StagingStatusApproved, staged.Status)

	for _, id := range []int64{idA, idC} {
		staged, err = fake.GetStagingCity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StagingStatusCommitted, staged.Status)
	}

	ops := fake.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OperationFailed, ops[0].Status)
}

func TestCommitRetriesBeforeFailing(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	id := stageApprovedCity(t, fake, "msk", "Moscow")

	fake.FailCity["msk"] = errors.New("deadlock detected")

	svc := newTestService(fake)

	handle, err := svc.Commit(ctx, []int64{id})
	require.NoError(t, err)

	result := waitResult(t, handle)
	require.Len(t, result.Failed, 1)

	// the last published progress carries the final retry attempt
	last := handle.Last()
	require.NotNil(t, last)
	assert.Equal(t, svc.retryMax, last.RetryAttempt)
}

func TestCommitSkipsNotApprovedCity(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	staged, err := fake.UpsertStagingCity(ctx, &domain.StagingCity{ExternalID: "msk", Name: "Moscow"})
	require.NoError(t, err)

	svc := newTestService(fake)

	handle, err := svc.Commit(ctx, []int64{staged.ID})
	require.NoError(t, err)

	result := waitResult(t, handle)
	assert.Empty(t, result.Committed)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Error, "not approved")
}

func TestCommitIsIdempotentForCommittedCity(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	id := stageApprovedCity(t, fake, "msk", "Moscow")

	svc := newTestService(fake)

	handle, err := svc.Commit(ctx, []int64{id})
	require.NoError(t, err)
	result := waitResult(t, handle)
	require.Empty(t, result.Failed)

	// committing the same city again rewrites identical data and succeeds
	handle, err = svc.Commit(ctx, []int64{id})
	require.NoError(t, err)
	result = waitResult(t, handle)

	assert.Equal(t, []string{"Moscow"}, result.Committed)
	assert.Empty(t, result.Failed)

	staged, err := fake.GetStagingCity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StagingStatusCommitted, staged.Status)
}

func TestCommitBusy(t *testing.T) {
	fake := storetest.New()
	guard := opguard.New()

	release, err := guard.Acquire(domain.OperationCommit, "other")
	require.NoError(t, err)
	defer release()

	svc := NewService(fake, guard)

	_, err = svc.Commit(context.Background(), []int64{1})
	assert.ErrorIs(t, err, constants.ErrBusy)
}

// cancelOnFirstWrite cancels the batch from inside the first production
// write, so cancellation provably lands while a city is mid-commit.
type cancelOnFirstWrite struct {
	*storetest.Fake
	once    sync.Once
	handles chan *Handle
}

func (s *cancelOnFirstWrite) UpsertCity(ctx context.Context, city *domain.City) (*domain.City, error) {
	s.once.Do(func() {
		handle := <-s.handles
		handle.Cancel()
	})
	return s.Fake.UpsertCity(ctx, city)
}

func TestCancelFinishesCityInFlight(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	idA := stageApprovedCity(t, fake, "aaa", "Astrakhan")
	idB := stageApprovedCity(t, fake, "bbb", "Bryansk")

	wrapped := &cancelOnFirstWrite{Fake: fake, handles: make(chan *Handle, 1)}
	svc := NewService(wrapped, opguard.New())
	svc.retryInterval = time.Millisecond

	handle, err := svc.Commit(ctx, []int64{idA, idB})
	require.NoError(t, err)
	wrapped.handles <- handle

	result := waitResult(t, handle)

	// the city being written completes fully, the rest of the batch stops
	assert.Equal(t, []string{"Astrakhan"}, result.Committed)
	assert.Empty(t, result.Failed)

	stagedA, err := fake.GetStagingCity(ctx, idA)
	require.NoError(t, err)
	assert.Equal(t, domain.StagingStatusCommitted, stagedA.Status)

	stagedB, err := fake.GetStagingCity(ctx, idB)
	require.NoError(t, err)
	assert.Equal(t, domain.StagingStatusApproved, stagedB.Status)
}

func TestFinishedHandleEvictedAfterRetention(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	id := stageApprovedCity(t, fake, "msk", "Moscow")

	svc := newTestService(fake)
	svc.handleRetention = 10 * time.Millisecond

	handle, err := svc.Commit(ctx, []int64{id})
	require.NoError(t, err)
	waitResult(t, handle)

	assert.Eventually(t, func() bool {
		_, ok := svc.Handle(handle.BatchID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestHandleReattachAfterFinish(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	id := stageApprovedCity(t, fake, "msk", "Moscow")

	svc := newTestService(fake)

	handle, err := svc.Commit(ctx, []int64{id})
	require.NoError(t, err)
	waitResult(t, handle)

	reattached, ok := svc.Handle(handle.BatchID)
	require.True(t, ok)
	require.NotNil(t, reattached.Result())
	assert.Equal(t, []string{"Moscow"}, reattached.Result().Committed)
}
