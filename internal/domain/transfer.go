package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/errorx"
	"github.com/rs-ent/starglow-sub013/pkg/ethutil"
	"github.com/rs-ent/starglow-sub013/pkg/pubsub"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

type TransferDomain interface {
	// FulfillFromEscrow moves payment.Quantity tokens out of the collection's
	// escrow pool to the payment's receiver. Eligibility is decided by a live
	// ownership scan; the token table is never consulted for it. Payment
	// status is owned by the dispatcher, not written here.
	FulfillFromEscrow(ctx context.Context, paymentID string) (*model.TransferResponse, error)

	TransferWithAuthorization(
		ctx context.Context, req *model.TransferWithAuthorizationRequest,
	) (*model.TransferResponse, error)
}

type transferDomain struct {
	paymentRepo      repository.PaymentRepository
	collectionRepo   repository.CollectionRepository
	escrowWalletRepo repository.EscrowWalletRepository
	tokenRepo        repository.TokenRepository
	tokenEventRepo   repository.TokenEventRepository
	blockchainTxRepo repository.BlockchainTransactionRepository
	gateway          chain.Gateway
	walletLocker     *chain.WalletLocker
	publisher        pubsub.Publisher
}

func NewTransferDomain(
	paymentRepo repository.PaymentRepository,
	collectionRepo repository.CollectionRepository,
	escrowWalletRepo repository.EscrowWalletRepository,
	tokenRepo repository.TokenRepository,
	tokenEventRepo repository.TokenEventRepository,
	blockchainTxRepo repository.BlockchainTransactionRepository,
	gateway chain.Gateway,
	walletLocker *chain.WalletLocker,
	publisher pubsub.Publisher,
) *transferDomain {
	return &transferDomain{
		paymentRepo:      paymentRepo,
		collectionRepo:   collectionRepo,
		escrowWalletRepo: escrowWalletRepo,
		tokenRepo:        tokenRepo,
		tokenEventRepo:   tokenEventRepo,
		blockchainTxRepo: blockchainTxRepo,
		gateway:          gateway,
		walletLocker:     walletLocker,
		publisher:        publisher,
	}
}

func (d *transferDomain) FulfillFromEscrow(
	ctx context.Context, paymentID string,
) (*model.TransferResponse, error) {
	payment, err := d.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get payment %s: %v", paymentID, err)
		return nil, errorx.New(errorx.NotFound, "Not found payment")
	}

	if payment.ProductTable != entity.PaymentProductNFT {
		return nil, errorx.New(errorx.BadRequest, "Payment %s is not an nft order", paymentID)
	}

	if payment.Status != entity.PaymentPaid {
		return nil, errorx.New(errorx.StateConflict,
			"Payment %s is in status %s, not paid", payment.ID, payment.Status)
	}

	if !common.IsHexAddress(payment.ReceiverWalletAddress) {
		return nil, errorx.New(errorx.BadRequest, "Invalid receiver address")
	}

	collection, err := d.collectionRepo.GetByID(ctx, payment.ProductID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get collection %s: %v", payment.ProductID, err)
		return nil, errorx.New(errorx.NotFound, "Not found collection")
	}

	wallet, err := d.escrowWalletRepo.GetByAddress(ctx, collection.CreatorAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get escrow wallet of %s: %v", collection.Address, err)
		return nil, errorx.New(errorx.NotFound, "Not found escrow wallet")
	}

	// The ownership scan and the transfer form one critical section. Without
	// the lock, two fulfillments can both observe the same pool and sell
	// overlapping token ids.
	unlock := d.walletLocker.Lock(wallet.Address)
	defer unlock()

	available, err := d.scanEscrowInventory(ctx, collection, wallet.Address)
	if err != nil {
		return nil, err
	}

	if len(available) < payment.Quantity {
		return nil, errorx.New(errorx.InsufficientInventory,
			"insufficient on-chain inventory: required %d, available %d",
			payment.Quantity, len(available))
	}

	// The ascending scan makes this selection stable across invocations
	// observing the same chain state.
	selected := available[:payment.Quantity]

	return d.executeBatchTransfer(ctx, collection, wallet, payment,
		wallet.Address, payment.ReceiverWalletAddress, selected, model.GasOptions{})
}

// scanEscrowInventory reads the collection's complete ownership mapping from
// the chain and returns the token ids held by the escrow address, ascending.
// A failed ownerOf read means the id is not sellable, not that the scan
// failed; burned ids surface that way.
func (d *transferDomain) scanEscrowInventory(
	ctx context.Context, collection *entity.Collection, escrowAddress string,
) ([]int64, error) {
	supply, err := readTotalSupply(ctx, d.gateway, collection.Network, collection.Address)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read totalSupply of %s: %v", collection.Address, err)
		return nil, errorx.New(errorx.Unavailable, "Cannot read collection supply")
	}

	escrow := common.HexToAddress(escrowAddress)
	available := make([]int64, 0, supply)
	for tokenID := int64(0); tokenID < supply; tokenID++ {
		owner, err := readOwnerOf(ctx, d.gateway, collection.Network, collection.Address, tokenID)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Skipping unreadable token %d of %s: %v",
				tokenID, collection.Address, err)
			continue
		}

		if owner == escrow {
			available = append(available, tokenID)
		}
	}

	return available, nil
}

func (d *transferDomain) TransferWithAuthorization(
	ctx context.Context, req *model.TransferWithAuthorizationRequest,
) (*model.TransferResponse, error) {
	if !common.IsHexAddress(req.FromAddress) || !common.IsHexAddress(req.ToAddress) {
		return nil, errorx.New(errorx.BadRequest, "Invalid from or to address")
	}

	payment, err := d.paymentRepo.GetByID(ctx, req.PaymentID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get payment %s: %v", req.PaymentID, err)
		return nil, errorx.New(errorx.NotFound, "Not found payment")
	}

	if payment.Status != entity.PaymentPaid {
		return nil, errorx.New(errorx.StateConflict,
			"Payment %s is in status %s, not paid", payment.ID, payment.Status)
	}

	collection, err := d.collectionRepo.GetByID(ctx, payment.ProductID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get collection %s: %v", payment.ProductID, err)
		return nil, errorx.New(errorx.NotFound, "Not found collection")
	}

	wallet, err := d.escrowWalletRepo.GetByAddress(ctx, collection.CreatorAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get escrow wallet of %s: %v", collection.Address, err)
		return nil, errorx.New(errorx.NotFound, "Not found escrow wallet")
	}

	tokens, err := d.tokenRepo.GetAvailableByOwner(ctx, collection.ID, req.FromAddress, payment.Quantity)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot query tokens of %s: %v", req.FromAddress, err)
		return nil, errorx.Unknown
	}

	if len(tokens) < payment.Quantity {
		return nil, errorx.New(errorx.InsufficientInventory,
			"Sender owns %d transferable tokens, %d required", len(tokens), payment.Quantity)
	}

	tokenIDs := make([]int64, 0, payment.Quantity)
	for _, token := range tokens {
		if err := verifyTransferAuthorization(
			req.FromAddress, req.ToAddress, token.TokenID, req.Authorizations,
		); err != nil {
			return nil, err
		}

		tokenIDs = append(tokenIDs, token.TokenID)
	}

	unlock := d.walletLocker.Lock(wallet.Address)
	defer unlock()

	resp, err := d.executeBatchTransfer(ctx, collection, wallet, payment,
		req.FromAddress, req.ToAddress, tokenIDs, req.Gas)
	if err != nil {
		// The dispatch decision was made; the payment must not stay in paid
		// limbo on this path.
		failPayment(ctx, d.paymentRepo, payment.ID, err.Error())
		return nil, err
	}

	result := entity.Map{"tx_hash": resp.TxHash, "token_ids": resp.TokenIDs}
	moved, err := completePayment(ctx, d.paymentRepo, payment.ID, result)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot complete payment %s: %v", payment.ID, err)
		return nil, errorx.New(errorx.ChainLedgerDiverged,
			"Transferred on chain but payment %s could not be completed", payment.ID)
	}

	if !moved {
		xcontext.Logger(ctx).Warnf("Payment %s moved out of paid during transfer", payment.ID)
	}

	return resp, nil
}

// transferAuthMessage is the exact byte string an owner personal-signs to
// authorize the escrow wallet to move one token on their behalf.
func transferAuthMessage(from, to string, tokenID int64) []byte {
	return []byte(fmt.Sprintf("starglow-transfer:%s:%s:%d",
		strings.ToLower(from), strings.ToLower(to), tokenID))
}

func verifyTransferAuthorization(
	from, to string, tokenID int64, authorizations []model.TransferAuthorization,
) error {
	for _, auth := range authorizations {
		if auth.TokenID != tokenID {
			continue
		}

		signature, err := hexutil.Decode(auth.Signature)
		if err != nil {
			return errorx.New(errorx.BadRequest, "Malformed signature for token %d", tokenID)
		}

		recovered, err := ethutil.RecoverPersonalSign(transferAuthMessage(from, to, tokenID), signature)
		if err != nil || recovered != common.HexToAddress(from) {
			return errorx.New(errorx.PermissionDenied, "Invalid authorization for token %d", tokenID)
		}

		return nil
	}

	return errorx.New(errorx.PermissionDenied, "Missing authorization for token %d", tokenID)
}

// executeBatchTransfer is the shared mechanism behind both transfer paths:
// one on-chain batch write signed by the escrow wallet, then one ledger
// transaction for the ownership updates and their event rows.
func (d *transferDomain) executeBatchTransfer(
	ctx context.Context,
	collection *entity.Collection,
	wallet *entity.EscrowWallet,
	payment *entity.Payment,
	from, to string,
	tokenIDs []int64,
	gas model.GasOptions,
) (*model.TransferResponse, error) {
	txHash, err := confirmWrite(ctx, d.gateway, d.blockchainTxRepo,
		collection.Network, wallet, collection.Address, "batchTransferFrom", toChainGas(gas),
		common.HexToAddress(from), common.HexToAddress(to), bigTokenIDs(tokenIDs))
	if err != nil {
		return nil, err
	}

	if err := d.recordTransfer(ctx, collection, payment.UserID, from, to, tokenIDs, txHash); err != nil {
		xcontext.Logger(ctx).Errorf(
			"Transfer tx %s confirmed but ledger recording failed for %s: %v",
			txHash, collection.Address, err)
		return nil, errorx.New(errorx.ChainLedgerDiverged,
			"Transferred on chain but recording failed for transaction %s", txHash)
	}

	d.publishTransferEvent(ctx, payment, collection, from, to, tokenIDs, txHash)

	return &model.TransferResponse{TxHash: txHash, TokenIDs: tokenIDs}, nil
}

func (d *transferDomain) recordTransfer(
	ctx context.Context,
	collection *entity.Collection,
	userID string,
	from, to string,
	tokenIDs []int64,
	txHash string,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.tokenRepo.UpdateOwner(ctx, collection.ID, tokenIDs, to, userID, time.Now()); err != nil {
		return err
	}

	events := make([]*entity.TokenEvent, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		events = append(events, newTokenEvent(ctx,
			collection.ID, tokenID, entity.TokenEventTransfer, from, to, txHash))
	}

	if err := d.tokenEventRepo.BulkInsert(ctx, events); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

// publishTransferEvent emits the audit event. It is derived from the
// authoritative ownership update, so delivery is best effort.
func (d *transferDomain) publishTransferEvent(
	ctx context.Context,
	payment *entity.Payment,
	collection *entity.Collection,
	from, to string,
	tokenIDs []int64,
	txHash string,
) {
	if d.publisher == nil {
		return
	}

	msg, err := json.Marshal(map[string]any{
		"payment_id":         payment.ID,
		"collection_address": collection.Address,
		"network":            collection.Network,
		"from":               from,
		"to":                 to,
		"token_ids":          tokenIDs,
		"tx_hash":            txHash,
	})
	if err != nil {
		return
	}

	topic := xcontext.Configs(ctx).Kafka.TokenEventTopic
	err = d.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(payment.ID), Msg: msg})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish transfer event of payment %s: %v", payment.ID, err)
	}
}
