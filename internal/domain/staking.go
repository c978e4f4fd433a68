package domain

import (
	"context"
	"database/sql"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/errorx"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"github.com/rs-ent/starglow-sub013/pkg/xredis"
)

const (
	rewardScanKey = "staking:reward_scan"
	rewardScanTTL = 10 * time.Minute
)

type StakingDomain interface {
	Stake(ctx context.Context, req *model.StakeRequest) (*model.StakeResponse, error)
	Unstake(ctx context.Context, req *model.UnstakeRequest) (*model.UnstakeResponse, error)

	// FindRewardableStakeTokens posts one reward log per (tier, token) pair
	// that crossed its duration threshold since the last scan. Single-flight;
	// rerunning it selects zero rows for already-logged pairs.
	FindRewardableStakeTokens(ctx context.Context) (*model.FindRewardableStakeTokensResponse, error)

	ClaimStakeReward(
		ctx context.Context, req *model.ClaimStakeRewardRequest,
	) (*model.ClaimStakeRewardResponse, error)
}

type stakingDomain struct {
	collectionRepo   repository.CollectionRepository
	escrowWalletRepo repository.EscrowWalletRepository
	tokenRepo        repository.TokenRepository
	tokenEventRepo   repository.TokenEventRepository
	stakeRewardRepo  repository.StakeRewardRepository
	rewardLogRepo    repository.StakeRewardLogRepository
	playerAssetRepo  repository.PlayerAssetRepository
	blockchainTxRepo repository.BlockchainTransactionRepository
	gateway          chain.Gateway
	walletLocker     *chain.WalletLocker
	redisClient      xredis.Client
}

func NewStakingDomain(
	collectionRepo repository.CollectionRepository,
	escrowWalletRepo repository.EscrowWalletRepository,
	tokenRepo repository.TokenRepository,
	tokenEventRepo repository.TokenEventRepository,
	stakeRewardRepo repository.StakeRewardRepository,
	rewardLogRepo repository.StakeRewardLogRepository,
	playerAssetRepo repository.PlayerAssetRepository,
	blockchainTxRepo repository.BlockchainTransactionRepository,
	gateway chain.Gateway,
	walletLocker *chain.WalletLocker,
	redisClient xredis.Client,
) *stakingDomain {
	return &stakingDomain{
		collectionRepo:   collectionRepo,
		escrowWalletRepo: escrowWalletRepo,
		tokenRepo:        tokenRepo,
		tokenEventRepo:   tokenEventRepo,
		stakeRewardRepo:  stakeRewardRepo,
		rewardLogRepo:    rewardLogRepo,
		playerAssetRepo:  playerAssetRepo,
		blockchainTxRepo: blockchainTxRepo,
		gateway:          gateway,
		walletLocker:     walletLocker,
		redisClient:      redisClient,
	}
}

func (d *stakingDomain) Stake(ctx context.Context, req *model.StakeRequest) (*model.StakeResponse, error) {
	collection, wallet, tokens, err := d.resolveStakeTarget(ctx, req.UserID, req.CollectionAddress, req.TokenIDs)
	if err != nil {
		return nil, err
	}

	for _, token := range tokens {
		if token.IsStaked {
			return nil, errorx.New(errorx.StateConflict, "Token %d is already staked", token.TokenID)
		}

		if token.IsLocked || token.IsBurned {
			return nil, errorx.New(errorx.StateConflict, "Token %d is not stakeable", token.TokenID)
		}
	}

	unlockAt := sql.NullTime{}
	if req.UnlockAt != nil {
		if req.UnlockAt.Before(time.Now()) {
			return nil, errorx.New(errorx.BadRequest, "Unlock time is in the past")
		}

		unlockAt = sql.NullTime{Valid: true, Time: *req.UnlockAt}
	}

	unlock := d.walletLocker.Lock(wallet.Address)
	defer unlock()

	txHash, err := confirmWrite(ctx, d.gateway, d.blockchainTxRepo,
		collection.Network, wallet, collection.Address, "lockTokens", toChainGas(req.Gas),
		bigTokenIDs(req.TokenIDs), true)
	if err != nil {
		return nil, err
	}

	if err := d.recordStakeChange(ctx, collection, req.TokenIDs, txHash, true, unlockAt, nil); err != nil {
		xcontext.Logger(ctx).Errorf(
			"Stake tx %s confirmed but ledger recording failed for %s: %v",
			txHash, collection.Address, err)
		return nil, errorx.New(errorx.ChainLedgerDiverged,
			"Locked on chain but recording failed for transaction %s", txHash)
	}

	return &model.StakeResponse{TxHash: txHash, TokenIDs: req.TokenIDs}, nil
}

func (d *stakingDomain) Unstake(ctx context.Context, req *model.UnstakeRequest) (*model.UnstakeResponse, error) {
	collection, wallet, tokens, err := d.resolveStakeTarget(ctx, req.UserID, req.CollectionAddress, req.TokenIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, token := range tokens {
		if !token.IsStaked {
			return nil, errorx.New(errorx.StateConflict, "Token %d is not staked", token.TokenID)
		}

		if token.UnlockAt.Valid && now.Before(token.UnlockAt.Time) {
			return nil, errorx.New(errorx.StateConflict,
				"Token %d is locked until %s", token.TokenID, token.UnlockAt.Time.Format(time.RFC3339))
		}
	}

	if err := d.verifyForfeitLogs(ctx, collection, req.TokenIDs, req.ForfeitLogIDs); err != nil {
		return nil, err
	}

	unlock := d.walletLocker.Lock(wallet.Address)
	defer unlock()

	txHash, err := confirmWrite(ctx, d.gateway, d.blockchainTxRepo,
		collection.Network, wallet, collection.Address, "unlockTokens", toChainGas(req.Gas),
		bigTokenIDs(req.TokenIDs), true)
	if err != nil {
		return nil, err
	}

	if err := d.recordStakeChange(ctx, collection, req.TokenIDs, txHash, false, sql.NullTime{}, req.ForfeitLogIDs); err != nil {
		xcontext.Logger(ctx).Errorf(
			"Unstake tx %s confirmed but ledger recording failed for %s: %v",
			txHash, collection.Address, err)
		return nil, errorx.New(errorx.ChainLedgerDiverged,
			"Unlocked on chain but recording failed for transaction %s", txHash)
	}

	return &model.UnstakeResponse{TxHash: txHash, TokenIDs: req.TokenIDs}, nil
}

func (d *stakingDomain) resolveStakeTarget(
	ctx context.Context, userID, collectionAddress string, tokenIDs []int64,
) (*entity.Collection, *entity.EscrowWallet, []entity.Token, error) {
	if userID == "" {
		return nil, nil, nil, errorx.New(errorx.BadRequest, "Missing user id")
	}

	if !common.IsHexAddress(collectionAddress) {
		return nil, nil, nil, errorx.New(errorx.BadRequest, "Invalid collection address")
	}

	if len(tokenIDs) == 0 {
		return nil, nil, nil, errorx.New(errorx.BadRequest, "No token ids given")
	}

	collection, err := d.collectionRepo.GetByAddress(ctx, collectionAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get collection %s: %v", collectionAddress, err)
		return nil, nil, nil, errorx.New(errorx.NotFound, "Not found collection")
	}

	wallet, err := d.escrowWalletRepo.GetByAddress(ctx, collection.CreatorAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get escrow wallet of %s: %v", collection.Address, err)
		return nil, nil, nil, errorx.New(errorx.NotFound, "Not found escrow wallet")
	}

	tokens, err := d.tokenRepo.GetByIDs(ctx, collection.ID, tokenIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tokens of %s: %v", collection.ID, err)
		return nil, nil, nil, errorx.Unknown
	}

	if len(tokens) != len(tokenIDs) {
		return nil, nil, nil, errorx.New(errorx.NotFound,
			"Only %d of %d tokens found", len(tokens), len(tokenIDs))
	}

	for _, token := range tokens {
		if token.UserID != userID {
			return nil, nil, nil, errorx.New(errorx.PermissionDenied,
				"Token %d does not belong to the user", token.TokenID)
		}
	}

	return collection, wallet, tokens, nil
}

// verifyForfeitLogs rejects forfeiture of reward logs that do not belong to
// the tokens being unstaked; a caller may only void accrual it is giving up.
func (d *stakingDomain) verifyForfeitLogs(
	ctx context.Context, collection *entity.Collection, tokenIDs []int64, forfeitLogIDs []string,
) error {
	if len(forfeitLogIDs) == 0 {
		return nil
	}

	logs, err := d.rewardLogRepo.GetByIDs(ctx, forfeitLogIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get forfeit logs: %v", err)
		return errorx.Unknown
	}

	if len(logs) != len(forfeitLogIDs) {
		return errorx.New(errorx.NotFound,
			"Only %d of %d forfeit logs found", len(logs), len(forfeitLogIDs))
	}

	unstaked := map[int64]struct{}{}
	for _, tokenID := range tokenIDs {
		unstaked[tokenID] = struct{}{}
	}

	for _, log := range logs {
		if _, ok := unstaked[log.TokenID]; !ok || log.CollectionID != collection.ID {
			return errorx.New(errorx.PermissionDenied,
				"Reward log %s does not belong to the unstaked tokens", log.ID)
		}
	}

	return nil
}

// recordStakeChange applies the ledger side of a confirmed lock or unlock
// write in one transaction. An unstake that forfeits pending logs resets
// them to undistributed; already-claimed logs are untouched.
func (d *stakingDomain) recordStakeChange(
	ctx context.Context,
	collection *entity.Collection,
	tokenIDs []int64,
	txHash string,
	staked bool,
	unlockAt sql.NullTime,
	forfeitLogIDs []string,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	eventType := entity.TokenEventLock
	if staked {
		if err := d.tokenRepo.SetStaked(ctx, collection.ID, tokenIDs, time.Now(), unlockAt); err != nil {
			return err
		}
	} else {
		eventType = entity.TokenEventUnlock
		if err := d.tokenRepo.ClearStaked(ctx, collection.ID, tokenIDs); err != nil {
			return err
		}

		if len(forfeitLogIDs) > 0 {
			if err := d.rewardLogRepo.ResetDistributed(ctx, forfeitLogIDs); err != nil {
				return err
			}
		}
	}

	events := make([]*entity.TokenEvent, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		events = append(events, newTokenEvent(ctx,
			collection.ID, tokenID, eventType, collection.CreatorAddress, collection.Address, txHash))
	}

	if err := d.tokenEventRepo.BulkInsert(ctx, events); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

func (d *stakingDomain) FindRewardableStakeTokens(
	ctx context.Context,
) (*model.FindRewardableStakeTokensResponse, error) {
	// The select-then-insert sequence below is not atomic; overlapping scans
	// would both select the same tokens. The redis lock keeps one scan in
	// flight platform-wide.
	if d.redisClient != nil {
		acquired, err := d.redisClient.SetNX(ctx, rewardScanKey, "1", rewardScanTTL)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot acquire reward scan lock: %v", err)
			return nil, errorx.Unknown
		}

		if !acquired {
			return nil, errorx.New(errorx.TooManyRequests, "A reward scan is already running")
		}

		defer func() {
			if err := d.redisClient.Del(ctx, rewardScanKey); err != nil {
				xcontext.Logger(ctx).Warnf("Cannot release reward scan lock: %v", err)
			}
		}()
	}

	rewards, err := d.stakeRewardRepo.GetAll(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get stake rewards: %v", err)
		return nil, errorx.Unknown
	}

	now := time.Now()
	collections := map[string]*entity.Collection{}
	logs := []*entity.StakeRewardLog{}
	found := []model.RewardableStakeToken{}
	for i := range rewards {
		reward := &rewards[i]

		collection, ok := collections[reward.CollectionAddress]
		if !ok {
			collection, err = d.collectionRepo.GetByAddress(ctx, reward.CollectionAddress)
			if err != nil {
				xcontext.Logger(ctx).Warnf("Cannot get collection %s of reward %s: %v",
					reward.CollectionAddress, reward.ID, err)
				continue
			}

			collections[reward.CollectionAddress] = collection
		}

		eligible, err := d.findEligibleTokens(ctx, reward, collection, now)
		if err != nil {
			return nil, err
		}

		for _, tokenID := range eligible {
			logs = append(logs, &entity.StakeRewardLog{
				Base:          entity.Base{ID: uuid.NewString()},
				StakeRewardID: reward.ID,
				CollectionID:  collection.ID,
				TokenID:       tokenID,
				AssetID:       reward.AssetID,
				Amount:        reward.Amount,
				IsDistributed: true,
				DistributedAt: sql.NullTime{Valid: true, Time: now},
			})
			found = append(found, model.RewardableStakeToken{
				StakeRewardID: reward.ID,
				CollectionID:  collection.ID,
				TokenID:       tokenID,
				AssetID:       reward.AssetID,
				Amount:        reward.Amount,
			})
		}
	}

	if len(logs) > 0 {
		if err := d.rewardLogRepo.BulkInsert(ctx, logs); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot insert reward logs: %v", err)
			return nil, errorx.Unknown
		}
	}

	return &model.FindRewardableStakeTokensResponse{Tokens: found}, nil
}

// findEligibleTokens returns the staked tokens of one collection that
// crossed the tier's duration threshold and have no log for the tier yet.
func (d *stakingDomain) findEligibleTokens(
	ctx context.Context, reward *entity.StakeReward, collection *entity.Collection, now time.Time,
) ([]int64, error) {
	staked, err := d.tokenRepo.GetStakedBefore(ctx, collection.ID, now.Add(-reward.StakeDuration))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot query staked tokens of %s: %v", collection.ID, err)
		return nil, errorx.Unknown
	}

	if len(staked) == 0 {
		return nil, nil
	}

	loggedIDs, err := d.rewardLogRepo.GetLoggedTokenIDs(ctx, reward.ID, collection.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot query reward logs of %s: %v", reward.ID, err)
		return nil, errorx.Unknown
	}

	logged := map[int64]struct{}{}
	for _, id := range loggedIDs {
		logged[id] = struct{}{}
	}

	eligible := make([]int64, 0, len(staked))
	for _, token := range staked {
		if _, ok := logged[token.TokenID]; ok {
			continue
		}

		eligible = append(eligible, token.TokenID)
	}

	return eligible, nil
}

func (d *stakingDomain) ClaimStakeReward(
	ctx context.Context, req *model.ClaimStakeRewardRequest,
) (*model.ClaimStakeRewardResponse, error) {
	if req.UserID == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing user id")
	}

	if len(req.LogIDs) == 0 {
		return nil, errorx.New(errorx.BadRequest, "No reward logs given")
	}

	logs, err := d.rewardLogRepo.GetByIDs(ctx, req.LogIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get reward logs: %v", err)
		return nil, errorx.Unknown
	}

	if len(logs) != len(req.LogIDs) {
		return nil, errorx.New(errorx.NotFound,
			"Only %d of %d reward logs found", len(logs), len(req.LogIDs))
	}

	amounts := map[string]float64{}
	for _, log := range logs {
		if log.IsClaimed {
			return nil, errorx.New(errorx.StateConflict, "Reward log %s is already claimed", log.ID)
		}

		if !log.IsDistributed {
			return nil, errorx.New(errorx.StateConflict, "Reward log %s is not distributed yet", log.ID)
		}

		amounts[log.AssetID] += log.Amount
	}

	// Credit and claim-marking commit together, so a failure in either
	// leaves balances and logs consistent.
	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(txCtx)

	for assetID, amount := range amounts {
		if err := d.playerAssetRepo.Add(txCtx, req.UserID, assetID, amount); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot credit asset %s of %s: %v", assetID, req.UserID, err)
			return nil, errorx.Unknown
		}
	}

	if err := d.rewardLogRepo.MarkClaimed(txCtx, req.LogIDs, time.Now()); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark reward logs claimed: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.WithCommitDBTransaction(txCtx)

	return &model.ClaimStakeRewardResponse{Amounts: amounts}, nil
}

func bigTokenIDs(tokenIDs []int64) []*big.Int {
	ids := make([]*big.Int, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		ids = append(ids, big.NewInt(tokenID))
	}

	return ids
}
