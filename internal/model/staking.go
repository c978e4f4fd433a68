package model

import "time"

type StakeRequest struct {
	UserID            string  `json:"user_id"`
	CollectionAddress string  `json:"collection_address"`
	TokenIDs          []int64 `json:"token_ids"`

	// UnlockAt optionally commits the stake until the given time; unstaking
	// earlier is rejected.
	UnlockAt *time.Time `json:"unlock_at,omitempty"`
	Gas      GasOptions `json:"gas,omitempty"`
}

type StakeResponse struct {
	TxHash   string  `json:"tx_hash"`
	TokenIDs []int64 `json:"token_ids"`
}

type UnstakeRequest struct {
	UserID            string  `json:"user_id"`
	CollectionAddress string  `json:"collection_address"`
	TokenIDs          []int64 `json:"token_ids"`

	// ForfeitLogIDs are reward logs that were posted but not yet delivered to
	// the user. Unstaking before maturity resets them to undistributed.
	ForfeitLogIDs []string   `json:"forfeit_log_ids,omitempty"`
	Gas           GasOptions `json:"gas,omitempty"`
}

type UnstakeResponse struct {
	TxHash   string  `json:"tx_hash"`
	TokenIDs []int64 `json:"token_ids"`
}

type RewardableStakeToken struct {
	StakeRewardID string  `json:"stake_reward_id"`
	CollectionID  string  `json:"collection_id"`
	TokenID       int64   `json:"token_id"`
	AssetID       string  `json:"asset_id"`
	Amount        float64 `json:"amount"`
}

type FindRewardableStakeTokensResponse struct {
	Tokens []RewardableStakeToken `json:"tokens"`
}

type ClaimStakeRewardRequest struct {
	UserID string   `json:"user_id"`
	LogIDs []string `json:"log_ids"`
}

type ClaimStakeRewardResponse struct {
	// Amounts is the credited amount per asset id.
	Amounts map[string]float64 `json:"amounts"`
}
