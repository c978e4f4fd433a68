package entity

import "github.com/rs-ent/starglow-sub013/pkg/enum"

type BlockchainTransactionStatusType string

var (
	BlockchainTransactionInProgress = enum.New(BlockchainTransactionStatusType("inprogress"))
	BlockchainTransactionSuccess    = enum.New(BlockchainTransactionStatusType("success"))
	BlockchainTransactionFailure    = enum.New(BlockchainTransactionStatusType("failure"))
)

// BlockchainTransaction tracks every write this service dispatches. Rows
// stuck in progress are re-resolved by the reconciliation sweep.
type BlockchainTransaction struct {
	Base

	Network         string
	ContractAddress string
	TxHash          string `gorm:"uniqueIndex"`
	Status          BlockchainTransactionStatusType
}
