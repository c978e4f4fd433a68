package chain

import (
	"context"
	"math/big"

	"github.com/rs-ent/starglow-sub013/internal/entity"
)

type ReceiptStatus int

const (
	// ReceiptUnknown means no receipt was observed before the wait timed
	// out. The transaction may still land; callers must not treat this as a
	// revert or retry the write blindly.
	ReceiptUnknown ReceiptStatus = iota
	ReceiptSuccess
	ReceiptReverted
)

type Receipt struct {
	Status      ReceiptStatus
	TxHash      string
	BlockNumber int64
}

// GasOptions overrides network-suggested gas values when set.
type GasOptions struct {
	GasLimit             uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// Gateway is the chain access surface consumed by every domain. All calls
// block until the RPC answers or the context/timeout expires.
type Gateway interface {
	ReadContract(ctx context.Context, network, address, function string, args ...any) ([]any, error)

	// WriteContract signs with the escrow wallet's derived key, submits the
	// transaction and returns its hash. It does not wait for confirmation.
	WriteContract(
		ctx context.Context,
		network string,
		signer *entity.EscrowWallet,
		address, function string,
		gas GasOptions,
		args ...any,
	) (string, error)

	WaitForReceipt(ctx context.Context, network, txHash string) (*Receipt, error)
	GetCode(ctx context.Context, network, address string) ([]byte, error)
	EstimateGas(ctx context.Context, network, from, to string, data []byte) (uint64, error)
	SuggestGasPrice(ctx context.Context, network string) (*big.Int, error)
}
