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
)

func toChainGas(gas model.GasOptions) chain.GasOptions {
	opts := chain.GasOptions{GasLimit: gas.GasLimit}
	if gas.GasPrice > 0 {
		opts.GasPrice = big.NewInt(gas.GasPrice)
	}

	return opts
}

// confirmWrite submits one contract write, records it, and blocks until its
// receipt resolves. The three receipt outcomes map to three distinct results:
// success returns the hash, a revert returns ChainReverted, and an
// unobserved receipt returns ChainUnknownOutcome while the transaction row
// stays in progress for the reconciliation sweep to finish.
func confirmWrite(
	ctx context.Context,
	gateway chain.Gateway,
	blockchainTxRepo repository.BlockchainTransactionRepository,
	network string,
	signer *entity.EscrowWallet,
	address, function string,
	gas chain.GasOptions,
	args ...any,
) (string, error) {
	txHash, err := gateway.WriteContract(ctx, network, signer, address, function, gas, args...)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot submit %s transaction: %v", function, err)
		return "", errorx.New(errorx.Unavailable, "Cannot submit %s transaction", function)
	}

	err = blockchainTxRepo.Create(ctx, &entity.BlockchainTransaction{
		Base:            entity.Base{ID: uuid.NewString()},
		Network:         network,
		ContractAddress: address,
		TxHash:          txHash,
		Status:          entity.BlockchainTransactionInProgress,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot record transaction %s: %v", txHash, err)
	}

	receipt, err := gateway.WaitForReceipt(ctx, network, txHash)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot wait for receipt of %s: %v", txHash, err)
		return txHash, errorx.New(errorx.ChainUnknownOutcome,
			"No confirmation observed for %s transaction %s", function, txHash)
	}

	switch receipt.Status {
	case chain.ReceiptSuccess:
		err := blockchainTxRepo.UpdateStatusByTxHash(ctx, txHash, entity.BlockchainTransactionSuccess)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot finalize transaction %s: %v", txHash, err)
		}

		return txHash, nil

	case chain.ReceiptReverted:
		err := blockchainTxRepo.UpdateStatusByTxHash(ctx, txHash, entity.BlockchainTransactionFailure)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot finalize transaction %s: %v", txHash, err)
		}

		return txHash, errorx.New(errorx.ChainReverted, "Transaction %s of %s reverted", txHash, function)

	default:
		return txHash, errorx.New(errorx.ChainUnknownOutcome,
			"No confirmation observed for %s transaction %s", function, txHash)
	}
}

func readTotalSupply(ctx context.Context, gateway chain.Gateway, network, address string) (int64, error) {
	results, err := gateway.ReadContract(ctx, network, address, "totalSupply")
	if err != nil {
		return 0, err
	}

	if len(results) == 0 {
		return 0, errorx.New(errorx.BadResponse, "Empty totalSupply response")
	}

	supply, ok := results[0].(*big.Int)
	if !ok {
		return 0, errorx.New(errorx.BadResponse, "Unexpected totalSupply response type")
	}

	return supply.Int64(), nil
}

func readOwnerOf(
	ctx context.Context, gateway chain.Gateway, network, address string, tokenID int64,
) (common.Address, error) {
	results, err := gateway.ReadContract(ctx, network, address, "ownerOf", big.NewInt(tokenID))
	if err != nil {
		return common.Address{}, err
	}

	if len(results) == 0 {
		return common.Address{}, errorx.New(errorx.BadResponse, "Empty ownerOf response")
	}

	owner, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, errorx.New(errorx.BadResponse, "Unexpected ownerOf response type")
	}

	return owner, nil
}

// completePayment and failPayment are the only two writers of a payment's
// terminal state on the fulfillment path. Both are compare-and-set from
// paid, so a lost race shows up as false, never as a double write.
func completePayment(
	ctx context.Context, paymentRepo repository.PaymentRepository, id string, result entity.Map,
) (bool, error) {
	return paymentRepo.UpdateStatusFrom(ctx, id, entity.PaymentPaid, entity.PaymentCompleted,
		map[string]any{
			"post_process_result": result,
			"completed_at":        sql.NullTime{Valid: true, Time: time.Now()},
		})
}

func failPayment(
	ctx context.Context, paymentRepo repository.PaymentRepository, id, reason string,
) {
	moved, err := paymentRepo.UpdateStatusFrom(ctx, id, entity.PaymentPaid, entity.PaymentFailed,
		map[string]any{"failure_reason": reason})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark payment %s as failed: %v", id, err)
		return
	}

	if !moved {
		xcontext.Logger(ctx).Warnf("Payment %s left paid before it could be failed", id)
	}
}

func newTokenEvent(
	ctx context.Context,
	collectionID string,
	tokenID int64,
	eventType entity.TokenEventType,
	from, to, txHash string,
) *entity.TokenEvent {
	return &entity.TokenEvent{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		CollectionID:  collectionID,
		TokenID:       tokenID,
		Type:          eventType,
		FromAddress:   from,
		ToAddress:     to,
		TxHash:        txHash,
	}
}
