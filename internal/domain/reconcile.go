package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

type ReconcileDomain interface {
	Sweep(ctx context.Context) error
}

// reconcileDomain is the repair path for chain-ledger divergence. A write
// whose receipt was never observed, or a ledger transaction that failed
// after a confirmed write, leaves the database behind the chain; the sweep
// re-resolves pending transactions and backfills missing token rows from
// the authoritative on-chain state.
type reconcileDomain struct {
	collectionRepo   repository.CollectionRepository
	tokenRepo        repository.TokenRepository
	blockchainTxRepo repository.BlockchainTransactionRepository
	gateway          chain.Gateway
}

func NewReconcileDomain(
	collectionRepo repository.CollectionRepository,
	tokenRepo repository.TokenRepository,
	blockchainTxRepo repository.BlockchainTransactionRepository,
	gateway chain.Gateway,
) *reconcileDomain {
	return &reconcileDomain{
		collectionRepo:   collectionRepo,
		tokenRepo:        tokenRepo,
		blockchainTxRepo: blockchainTxRepo,
		gateway:          gateway,
	}
}

func (d *reconcileDomain) Sweep(ctx context.Context) error {
	d.resolvePendingTransactions(ctx)

	collections, err := d.collectionRepo.GetAll(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get collections: %v", err)
		return err
	}

	for i := range collections {
		d.reconcileCollection(ctx, &collections[i])
	}

	return nil
}

func (d *reconcileDomain) resolvePendingTransactions(ctx context.Context) {
	pending, err := d.blockchainTxRepo.GetAllInProgress(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get pending transactions: %v", err)
		return
	}

	for _, tx := range pending {
		receipt, err := d.gateway.WaitForReceipt(ctx, tx.Network, tx.TxHash)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot resolve transaction %s: %v", tx.TxHash, err)
			continue
		}

		var status entity.BlockchainTransactionStatusType
		switch receipt.Status {
		case chain.ReceiptSuccess:
			status = entity.BlockchainTransactionSuccess
		case chain.ReceiptReverted:
			status = entity.BlockchainTransactionFailure
		default:
			// Still unknown; leave the row for the next sweep.
			continue
		}

		if err := d.blockchainTxRepo.UpdateStatusByTxHash(ctx, tx.TxHash, status); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot finalize transaction %s: %v", tx.TxHash, err)
			continue
		}

		// A write that landed after its receipt window may have moved tokens
		// the ledger still records under the old owner.
		if status == entity.BlockchainTransactionSuccess {
			d.repairOwners(ctx, tx.Network, tx.ContractAddress)
		}
	}
}

func (d *reconcileDomain) repairOwners(ctx context.Context, network, contractAddress string) {
	collection, err := d.collectionRepo.GetByAddress(ctx, contractAddress)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot find collection at %s: %v", contractAddress, err)
		return
	}

	tokens, err := d.tokenRepo.GetAllByCollection(ctx, collection.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get tokens of %s: %v", collection.ID, err)
		return
	}

	for _, token := range tokens {
		owner, err := readOwnerOf(ctx, d.gateway, network, contractAddress, token.TokenID)
		if err != nil {
			continue
		}

		if owner == common.HexToAddress(token.CurrentOwnerAddress) {
			continue
		}

		xcontext.Logger(ctx).Warnf("Token %d of %s owned by %s on chain, %s in ledger; repairing",
			token.TokenID, collection.ID, owner.Hex(), token.CurrentOwnerAddress)

		err = d.tokenRepo.UpdateCurrentOwner(ctx, collection.ID, token.TokenID, owner.Hex())
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot repair owner of token %d of %s: %v",
				token.TokenID, collection.ID, err)
		}
	}
}

// reconcileCollection backfills token rows for ids the chain has minted but
// the ledger never recorded. Ids are assigned sequentially on chain, so the
// missing rows are exactly the range above the recorded count.
func (d *reconcileDomain) reconcileCollection(ctx context.Context, collection *entity.Collection) {
	supply, err := readTotalSupply(ctx, d.gateway, collection.Network, collection.Address)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot read totalSupply of %s: %v", collection.Address, err)
		return
	}

	count, err := d.tokenRepo.Count(ctx, collection.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot count tokens of %s: %v", collection.ID, err)
		return
	}

	if supply <= count {
		return
	}

	xcontext.Logger(ctx).Errorf(
		"Chain-ledger divergence on %s: chain supply %d, recorded %d; backfilling",
		collection.Address, supply, count)

	now := time.Now()
	tokens := make([]*entity.Token, 0, supply-count)
	for tokenID := count; tokenID < supply; tokenID++ {
		owner, err := readOwnerOf(ctx, d.gateway, collection.Network, collection.Address, tokenID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot read owner of token %d of %s: %v",
				tokenID, collection.Address, err)
			continue
		}

		tokens = append(tokens, &entity.Token{
			CollectionID:        collection.ID,
			TokenID:             tokenID,
			CreatedAt:           sql.NullTime{Valid: true, Time: now},
			OwnerAddress:        owner.Hex(),
			CurrentOwnerAddress: owner.Hex(),
		})
	}

	if len(tokens) == 0 {
		return
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.tokenRepo.BulkInsert(ctx, tokens); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot backfill tokens of %s: %v", collection.ID, err)
		return
	}

	if err := d.collectionRepo.IncreaseMintedCount(ctx, collection.ID, int64(len(tokens))); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot bump minted count of %s: %v", collection.ID, err)
		return
	}

	xcontext.WithCommitDBTransaction(ctx)
}
