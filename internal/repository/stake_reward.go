package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type StakeRewardRepository interface {
	Create(context.Context, *entity.StakeReward) error
	GetByID(context.Context, string) (*entity.StakeReward, error)
	GetAll(context.Context) ([]entity.StakeReward, error)
	GetByCollectionAddress(context.Context, string) ([]entity.StakeReward, error)
}

type stakeRewardRepository struct{}

func NewStakeRewardRepository() *stakeRewardRepository {
	return &stakeRewardRepository{}
}

func (r *stakeRewardRepository) Create(ctx context.Context, reward *entity.StakeReward) error {
	return xcontext.DB(ctx).Create(reward).Error
}

func (r *stakeRewardRepository) GetByID(ctx context.Context, id string) (*entity.StakeReward, error) {
	var result entity.StakeReward
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *stakeRewardRepository) GetAll(ctx context.Context) ([]entity.StakeReward, error) {
	var result []entity.StakeReward
	if err := xcontext.DB(ctx).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *stakeRewardRepository) GetByCollectionAddress(
	ctx context.Context, address string,
) ([]entity.StakeReward, error) {
	var result []entity.StakeReward
	if err := xcontext.DB(ctx).Find(&result, "collection_address=?", address).Error; err != nil {
		return nil, err
	}

	return result, nil
}

type StakeRewardLogRepository interface {
	BulkInsert(context.Context, []*entity.StakeRewardLog) error
	GetByIDs(context.Context, []string) ([]entity.StakeRewardLog, error)

	// GetLoggedTokenIDs returns the token ids of collectionID that already
	// have a log for the given reward tier, regardless of distribution or
	// claim state.
	GetLoggedTokenIDs(ctx context.Context, stakeRewardID, collectionID string) ([]int64, error)

	MarkClaimed(ctx context.Context, ids []string, claimedAt time.Time) error
	ResetDistributed(ctx context.Context, ids []string) error
}

type stakeRewardLogRepository struct{}

func NewStakeRewardLogRepository() *stakeRewardLogRepository {
	return &stakeRewardLogRepository{}
}

// BulkInsert skips rows whose (stake reward, token) pair is already logged,
// so an overlapping scan cannot credit the same tier twice.
func (r *stakeRewardLogRepository) BulkInsert(ctx context.Context, logs []*entity.StakeRewardLog) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(logs).Error
}

func (r *stakeRewardLogRepository) GetByIDs(ctx context.Context, ids []string) ([]entity.StakeRewardLog, error) {
	var result []entity.StakeRewardLog
	if err := xcontext.DB(ctx).Find(&result, "id IN (?)", ids).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *stakeRewardLogRepository) GetLoggedTokenIDs(
	ctx context.Context, stakeRewardID, collectionID string,
) ([]int64, error) {
	var result []int64
	err := xcontext.DB(ctx).
		Model(&entity.StakeRewardLog{}).
		Where("stake_reward_id=? AND collection_id=?", stakeRewardID, collectionID).
		Pluck("token_id", &result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *stakeRewardLogRepository) MarkClaimed(ctx context.Context, ids []string, claimedAt time.Time) error {
	return xcontext.DB(ctx).
		Model(&entity.StakeRewardLog{}).
		Where("id IN (?)", ids).
		Updates(map[string]any{
			"is_claimed": true,
			"claimed_at": sql.NullTime{Valid: true, Time: claimedAt},
		}).Error
}

func (r *stakeRewardLogRepository) ResetDistributed(ctx context.Context, ids []string) error {
	return xcontext.DB(ctx).
		Model(&entity.StakeRewardLog{}).
		Where("id IN (?) AND is_claimed=?", ids, false).
		Updates(map[string]any{
			"is_distributed": false,
			"distributed_at": sql.NullTime{},
		}).Error
}
