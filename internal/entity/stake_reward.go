package entity

import (
	"database/sql"
	"time"
)

// StakeReward defines one reward tier for one collection. Multiple tiers may
// exist per collection with different durations and amounts.
type StakeReward struct {
	Base

	CollectionAddress string

	AssetID string
	Amount  float64

	// StakeDuration is the minimum elapsed lock time before a staked token
	// becomes eligible for this tier.
	StakeDuration time.Duration
}

// StakeRewardLog records one accrual event. At most one log may exist per
// (stake reward, token) pair; that uniqueness is the sole guard against
// double-crediting a tier to the same staked token.
type StakeRewardLog struct {
	Base

	StakeRewardID string      `gorm:"uniqueIndex:idx_stake_reward_token,priority:1"`
	StakeReward   StakeReward `gorm:"foreignKey:StakeRewardID"`

	CollectionID string `gorm:"uniqueIndex:idx_stake_reward_token,priority:2"`
	TokenID      int64  `gorm:"uniqueIndex:idx_stake_reward_token,priority:3"`

	AssetID string
	Amount  float64

	IsDistributed bool
	DistributedAt sql.NullTime

	IsClaimed bool
	ClaimedAt sql.NullTime
}

// PlayerAsset is a user's off-chain asset balance, credited when stake
// reward logs are claimed.
type PlayerAsset struct {
	UserID  string `gorm:"primaryKey"`
	AssetID string `gorm:"primaryKey"`

	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime

	Balance float64
}
