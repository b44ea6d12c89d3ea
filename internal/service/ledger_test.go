package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KZEN17/token-ready-sub000/internal/address"
	"github.com/KZEN17/token-ready-sub000/internal/models"
	"github.com/KZEN17/token-ready-sub000/pkg/errors"
	"github.com/KZEN17/token-ready-sub000/pkg/keylock"
)

func newLedgerFixture(t *testing.T) (*LedgerService, *RegistryService, *fakeVCAStore, string) {
	t.Helper()
	vcaStore := newFakeVCAStore()
	activityStore := newFakeActivityStore()
	locks := keylock.New()
	scorer := NewScorerService(activityStore, vcaStore)
	ledger := NewLedgerService(vcaStore, activityStore, scorer, locks)
	registry := NewRegistryService(vcaStore, newFakeMappingStore(), locks)

	vca, err := registry.CreateOrGet(context.Background(), "proj-ledger", "owner-1")
	require.NoError(t, err)
	return ledger, registry, vcaStore, vca.Address
}

func TestAppendRecomputesCounters(t *testing.T) {
	ledger, registry, _, addr := newLedgerFixture(t)
	ctx := context.Background()

	inputs := []AppendActivityInput{
		{ActivityType: models.ActivityTypeBacking, UserID: "u1"},
		{ActivityType: models.ActivityTypeBacking, UserID: "u2"},
		{ActivityType: models.ActivityTypeReview, UserID: "u3"},
		{ActivityType: models.ActivityTypeShare, UserID: "u1"},
		{ActivityType: models.ActivityTypeShare, UserID: "u4"},
	}
	for _, input := range inputs {
		_, err := ledger.Append(ctx, addr, input)
		require.NoError(t, err)
	}

	vca, err := registry.Get(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, int64(4), vca.UniqueBackers)
	assert.Equal(t, int64(1), vca.Reviews)
	// round(4*1 + 2*0.5 + 1*2) = 7
	assert.Equal(t, int64(7), vca.SignalScore)
}

func TestAppendValidation(t *testing.T) {
	ledger, _, _, addr := newLedgerFixture(t)
	ctx := context.Background()

	_, err := ledger.Append(ctx, "bogus", AppendActivityInput{
		ActivityType: models.ActivityTypeBacking, UserID: "u1",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidAddress))

	_, err = ledger.Append(ctx, addr, AppendActivityInput{
		ActivityType: "clapping", UserID: "u1",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))

	_, err = ledger.Append(ctx, addr, AppendActivityInput{
		ActivityType: models.ActivityTypeBacking,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))

	unknown := address.Generate("never-registered", "salt")
	_, err = ledger.Append(ctx, unknown, AppendActivityInput{
		ActivityType: models.ActivityTypeBacking, UserID: "u1",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestAppendDefaultTimestamp(t *testing.T) {
	ledger, _, _, addr := newLedgerFixture(t)

	before := time.Now().UTC()
	record, err := ledger.Append(context.Background(), addr, AppendActivityInput{
		ActivityType: models.ActivityTypeBacking, UserID: "u1",
	})
	require.NoError(t, err)
	assert.False(t, record.Timestamp.Before(before))

	explicit := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	record, err = ledger.Append(context.Background(), addr, AppendActivityInput{
		ActivityType: models.ActivityTypeReview, UserID: "u2", Timestamp: &explicit,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, record.Timestamp)
}

func TestAppendRecomputeFailureKeepsRecord(t *testing.T) {
	ledger, _, vcaStore, addr := newLedgerFixture(t)
	ctx := context.Background()

	// 记录落库后写回计数失败：错误可见，已存储的记录一并返回
	vcaStore.failCounters = 1
	record, err := ledger.Append(ctx, addr, AppendActivityInput{
		ActivityType: models.ActivityTypeBacking, UserID: "u1",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrScoreRecompute))
	require.NotNil(t, record)
	assert.Equal(t, "u1", record.UserID)

	// 下一次追加重算成功，之前的记录也被计入
	_, err = ledger.Append(ctx, addr, AppendActivityInput{
		ActivityType: models.ActivityTypeBacking, UserID: "u2",
	})
	require.NoError(t, err)

	vca, err := vcaStore.GetByAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), vca.UniqueBackers)
}

func TestListByAddressNewestFirst(t *testing.T) {
	ledger, _, _, addr := newLedgerFixture(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		_, err := ledger.Append(ctx, addr, AppendActivityInput{
			ActivityType: models.ActivityTypeShare,
			UserID:       "u1",
			Timestamp:    &ts,
		})
		require.NoError(t, err)
	}

	records, err := ledger.ListByAddress(ctx, addr, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, base.Add(2*time.Hour), records[0].Timestamp)
	assert.Equal(t, base.Add(time.Hour), records[1].Timestamp)
}
