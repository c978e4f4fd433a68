package domain

import (
	"context"
	"testing"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/testutil"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newStakingDomainForTest(writes *[]string) *stakingDomain {
	gateway := &testutil.MockGateway{
		WriteContractFunc: func(
			ctx context.Context,
			network string,
			signer *entity.EscrowWallet,
			address, function string,
			gas chain.GasOptions,
			args ...any,
		) (string, error) {
			if writes != nil {
				*writes = append(*writes, function)
			}

			return "0xstake", nil
		},
	}

	return NewStakingDomain(
		repository.NewCollectionRepository(),
		repository.NewEscrowWalletRepository(),
		repository.NewTokenRepository(),
		repository.NewTokenEventRepository(),
		repository.NewStakeRewardRepository(),
		repository.NewStakeRewardLogRepository(),
		repository.NewPlayerAssetRepository(),
		repository.NewBlockchainTransactionRepository(),
		gateway,
		chain.NewWalletLocker(),
		&testutil.MockRedisClient{},
	)
}

func Test_stakingDomain_StakeAndUnstake(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 2)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertToken(ctx, collection.ID, 0, testutil.BuyerAddress)
	testutil.InsertToken(ctx, collection.ID, 1, testutil.BuyerAddress)

	writes := []string{}
	stakingDomain := newStakingDomainForTest(&writes)

	resp, err := stakingDomain.Stake(ctx, &model.StakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0, 1},
	})
	require.NoError(t, err)
	require.Equal(t, "0xstake", resp.TxHash)
	require.Equal(t, []string{"lockTokens"}, writes)

	token, err := stakingDomain.tokenRepo.Get(ctx, collection.ID, 0)
	require.NoError(t, err)
	require.True(t, token.IsStaked)
	require.True(t, token.StakedAt.Valid)

	// Staking an already staked token is rejected before any write.
	_, err = stakingDomain.Stake(ctx, &model.StakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
	})
	require.Error(t, err)
	require.Equal(t, "Token 0 is already staked", err.Error())
	require.Equal(t, []string{"lockTokens"}, writes)

	_, err = stakingDomain.Unstake(ctx, &model.UnstakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0, 1},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"lockTokens", "unlockTokens"}, writes)

	token, err = stakingDomain.tokenRepo.Get(ctx, collection.ID, 0)
	require.NoError(t, err)
	require.False(t, token.IsStaked)
	require.False(t, token.StakedAt.Valid)
}

func Test_stakingDomain_Stake_rejectsForeignTokens(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 1)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertToken(ctx, collection.ID, 0, testutil.BuyerAddress)

	writes := []string{}
	stakingDomain := newStakingDomainForTest(&writes)

	// Another account cannot stake, and by extension cannot later unstake and
	// forfeit, tokens it does not hold.
	_, err := stakingDomain.Stake(ctx, &model.StakeRequest{
		UserID:            "user2",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
	})
	require.Error(t, err)
	require.Equal(t, "Token 0 does not belong to the user", err.Error())
	require.Empty(t, writes)

	_, err = stakingDomain.Stake(ctx, &model.StakeRequest{
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
	})
	require.Error(t, err)
	require.Equal(t, "Missing user id", err.Error())
	require.Empty(t, writes)
}

func Test_stakingDomain_Unstake_honorsUnlockCommitment(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 1)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertToken(ctx, collection.ID, 0, testutil.BuyerAddress)

	writes := []string{}
	stakingDomain := newStakingDomainForTest(&writes)

	unlockAt := time.Now().Add(time.Hour)
	_, err := stakingDomain.Stake(ctx, &model.StakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
		UnlockAt:          &unlockAt,
	})
	require.NoError(t, err)

	token, err := stakingDomain.tokenRepo.Get(ctx, collection.ID, 0)
	require.NoError(t, err)
	require.True(t, token.UnlockAt.Valid)

	// Unstaking before the committed time is rejected before any write.
	_, err = stakingDomain.Unstake(ctx, &model.UnstakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Token 0 is locked until")
	require.Equal(t, []string{"lockTokens"}, writes)

	past := time.Now().Add(-time.Hour)
	_, err = stakingDomain.Stake(ctx, &model.StakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
		UnlockAt:          &past,
	})
	require.Error(t, err)
	require.Equal(t, "Token 0 is already staked", err.Error())
}

func Test_stakingDomain_Unstake_rejectsForeignForfeitLogs(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 2)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertStakedToken(ctx, collection.ID, 0, testutil.BuyerAddress, time.Now().Add(-2*time.Hour))
	testutil.InsertStakedToken(ctx, collection.ID, 1, testutil.BuyerAddress, time.Now().Add(-2*time.Hour))
	testutil.InsertStakeReward(ctx, "tier1", "gold", 10, time.Hour)

	stakingDomain := newStakingDomainForTest(nil)

	scan, err := stakingDomain.FindRewardableStakeTokens(ctx)
	require.NoError(t, err)
	require.Len(t, scan.Tokens, 2)

	var otherLog entity.StakeRewardLog
	err = xcontext.DB(ctx).
		Take(&otherLog, "stake_reward_id=? AND collection_id=? AND token_id=?", "tier1", collection.ID, 1).Error
	require.NoError(t, err)

	// Unstaking token 0 cannot void the accrual of token 1.
	_, err = stakingDomain.Unstake(ctx, &model.UnstakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
		ForfeitLogIDs:     []string{otherLog.ID},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not belong to the unstaked tokens")

	logs, err := stakingDomain.rewardLogRepo.GetByIDs(ctx, []string{otherLog.ID})
	require.NoError(t, err)
	require.True(t, logs[0].IsDistributed)
}

func Test_stakingDomain_FindRewardableStakeTokens_noDoubleCrediting(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 1)
	testutil.InsertEscrowWallet(ctx)

	// One token staked for three hours, two tiers already matured.
	testutil.InsertStakedToken(ctx, collection.ID, 0, testutil.BuyerAddress, time.Now().Add(-3*time.Hour))
	testutil.InsertStakeReward(ctx, "tier1", "gold", 10, time.Hour)
	testutil.InsertStakeReward(ctx, "tier2", "gold", 25, 2*time.Hour)
	testutil.InsertStakeReward(ctx, "tier3", "gold", 100, 100*time.Hour)

	stakingDomain := newStakingDomainForTest(nil)

	resp, err := stakingDomain.FindRewardableStakeTokens(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Tokens, 2)

	// The second scan selects zero rows for already-logged pairs.
	resp, err = stakingDomain.FindRewardableStakeTokens(ctx)
	require.NoError(t, err)
	require.Empty(t, resp.Tokens)

	logged, err := stakingDomain.rewardLogRepo.GetLoggedTokenIDs(ctx, "tier1", collection.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{0}, logged)
}

func Test_stakingDomain_FindRewardableStakeTokens_singleFlight(t *testing.T) {
	ctx := testutil.MockContext()

	stakingDomain := newStakingDomainForTest(nil)
	redisClient := stakingDomain.redisClient.(*testutil.MockRedisClient)

	acquired, err := redisClient.SetNX(ctx, rewardScanKey, "1", rewardScanTTL)
	require.NoError(t, err)
	require.True(t, acquired)

	// A scan overlapping a running one loses the lock and is skipped.
	_, err = stakingDomain.FindRewardableStakeTokens(ctx)
	require.Error(t, err)
	require.Equal(t, "A reward scan is already running", err.Error())
}

func Test_stakingDomain_ClaimStakeReward(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 1)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertStakedToken(ctx, collection.ID, 0, testutil.BuyerAddress, time.Now().Add(-2*time.Hour))
	testutil.InsertStakeReward(ctx, "tier1", "gold", 10, time.Hour)
	testutil.InsertStakeReward(ctx, "tier2", "silver", 3, time.Hour)

	stakingDomain := newStakingDomainForTest(nil)

	scan, err := stakingDomain.FindRewardableStakeTokens(ctx)
	require.NoError(t, err)
	require.Len(t, scan.Tokens, 2)

	logIDs := []string{}
	for _, reward := range []string{"tier1", "tier2"} {
		tierLogIDs, err := listLogIDs(ctx, reward, collection.ID)
		require.NoError(t, err)
		logIDs = append(logIDs, tierLogIDs...)
	}
	require.Len(t, logIDs, 2)

	resp, err := stakingDomain.ClaimStakeReward(ctx, &model.ClaimStakeRewardRequest{
		UserID: "user1",
		LogIDs: logIDs,
	})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"gold": 10, "silver": 3}, resp.Amounts)

	asset, err := stakingDomain.playerAssetRepo.Get(ctx, "user1", "gold")
	require.NoError(t, err)
	require.Equal(t, float64(10), asset.Balance)

	// A second claim of the same logs fails and credits nothing.
	_, err = stakingDomain.ClaimStakeReward(ctx, &model.ClaimStakeRewardRequest{
		UserID: "user1",
		LogIDs: logIDs,
	})
	require.Error(t, err)

	asset, err = stakingDomain.playerAssetRepo.Get(ctx, "user1", "gold")
	require.NoError(t, err)
	require.Equal(t, float64(10), asset.Balance)
}

func Test_stakingDomain_Unstake_forfeitsPendingLogs(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 1)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertStakedToken(ctx, collection.ID, 0, testutil.BuyerAddress, time.Now().Add(-2*time.Hour))
	testutil.InsertStakeReward(ctx, "tier1", "gold", 10, time.Hour)

	stakingDomain := newStakingDomainForTest(nil)

	scan, err := stakingDomain.FindRewardableStakeTokens(ctx)
	require.NoError(t, err)
	require.Len(t, scan.Tokens, 1)

	logIDs, err := listLogIDs(ctx, "tier1", collection.ID)
	require.NoError(t, err)
	require.Len(t, logIDs, 1)

	_, err = stakingDomain.Unstake(ctx, &model.UnstakeRequest{
		UserID:            "user1",
		CollectionAddress: testutil.CollectionAddress,
		TokenIDs:          []int64{0},
		ForfeitLogIDs:     logIDs,
	})
	require.NoError(t, err)

	// The undelivered accrual is reset, so claiming it is rejected.
	_, err = stakingDomain.ClaimStakeReward(ctx, &model.ClaimStakeRewardRequest{
		UserID: "user1",
		LogIDs: logIDs,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not distributed")
}

// listLogIDs fetches the reward log ids of one tier for assertions.
func listLogIDs(ctx context.Context, stakeRewardID, collectionID string) ([]string, error) {
	var logs []entity.StakeRewardLog
	err := xcontext.DB(ctx).
		Find(&logs, "stake_reward_id=? AND collection_id=?", stakeRewardID, collectionID).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(logs))
	for _, log := range logs {
		ids = append(ids, log.ID)
	}

	return ids, nil
}
