package repository_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/testutil"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_stakeRewardLogRepository_BulkInsert_skipsLoggedPairs(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 1)
	reward := testutil.InsertStakeReward(ctx, "tier1", "gold", 5, time.Hour)

	logRepo := repository.NewStakeRewardLogRepository()

	newLog := func() *entity.StakeRewardLog {
		return &entity.StakeRewardLog{
			Base:          entity.Base{ID: uuid.NewString()},
			StakeRewardID: reward.ID,
			CollectionID:  collection.ID,
			TokenID:       0,
			AssetID:       reward.AssetID,
			Amount:        reward.Amount,
			IsDistributed: true,
		}
	}

	// Two scans overlapping on the same (tier, token) pair must leave exactly
	// one log behind; anything more is a double credit.
	require.NoError(t, logRepo.BulkInsert(ctx, []*entity.StakeRewardLog{newLog()}))
	require.NoError(t, logRepo.BulkInsert(ctx, []*entity.StakeRewardLog{newLog()}))

	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.StakeRewardLog{}).
		Where("stake_reward_id=? AND collection_id=? AND token_id=?", reward.ID, collection.ID, 0).
		Count(&count).Error
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
