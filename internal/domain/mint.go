package domain

import (
	"context"
	"database/sql"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/errorx"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

var zeroAddress = common.Address{}.Hex()

type MintDomain interface {
	Mint(ctx context.Context, req *model.MintRequest) (*model.MintResponse, error)
	RegenerateTokenMetadata(
		ctx context.Context, req *model.RegenerateTokenMetadataRequest,
	) (*model.RegenerateTokenMetadataResponse, error)
}

type mintDomain struct {
	collectionRepo   repository.CollectionRepository
	escrowWalletRepo repository.EscrowWalletRepository
	tokenRepo        repository.TokenRepository
	tokenEventRepo   repository.TokenEventRepository
	blockchainTxRepo repository.BlockchainTransactionRepository
	gateway          chain.Gateway
	walletLocker     *chain.WalletLocker
	metadata         *MetadataGenerator
}

func NewMintDomain(
	collectionRepo repository.CollectionRepository,
	escrowWalletRepo repository.EscrowWalletRepository,
	tokenRepo repository.TokenRepository,
	tokenEventRepo repository.TokenEventRepository,
	blockchainTxRepo repository.BlockchainTransactionRepository,
	gateway chain.Gateway,
	walletLocker *chain.WalletLocker,
	metadata *MetadataGenerator,
) *mintDomain {
	return &mintDomain{
		collectionRepo:   collectionRepo,
		escrowWalletRepo: escrowWalletRepo,
		tokenRepo:        tokenRepo,
		tokenEventRepo:   tokenEventRepo,
		blockchainTxRepo: blockchainTxRepo,
		gateway:          gateway,
		walletLocker:     walletLocker,
		metadata:         metadata,
	}
}

func (d *mintDomain) Mint(ctx context.Context, req *model.MintRequest) (*model.MintResponse, error) {
	if !common.IsHexAddress(req.CollectionAddress) {
		return nil, errorx.New(errorx.BadRequest, "Invalid collection address")
	}

	if !common.IsHexAddress(req.Recipient) {
		return nil, errorx.New(errorx.BadRequest, "Invalid recipient address")
	}

	if req.Quantity <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Quantity must be positive")
	}

	collection, err := d.collectionRepo.GetByAddress(ctx, req.CollectionAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get collection %s: %v", req.CollectionAddress, err)
		return nil, errorx.New(errorx.NotFound, "Not found collection")
	}

	if collection.BaseURI == "" {
		return nil, errorx.New(errorx.BadRequest, "Collection has no base URI")
	}

	if _, ok := xcontext.Configs(ctx).Blockchain.Network(collection.Network); !ok {
		return nil, errorx.New(errorx.NotFound, "Unsupported network %s", collection.Network)
	}

	wallet, err := d.escrowWalletRepo.GetByAddress(ctx, collection.CreatorAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get escrow wallet of %s: %v", collection.Address, err)
		return nil, errorx.New(errorx.NotFound, "Not found escrow wallet")
	}

	// The whole pre-read-then-write sequence holds the wallet lock. Two
	// concurrent mints must not both observe the same totalSupply, or the
	// derived id ranges overlap.
	unlock := d.walletLocker.Lock(wallet.Address)
	defer unlock()

	code, err := d.gateway.GetCode(ctx, collection.Network, collection.Address)
	if err != nil || len(code) == 0 {
		return nil, errorx.New(errorx.NotFound,
			"No contract deployed at %s on %s", collection.Address, collection.Network)
	}

	// Both gate reads fail safe. An unreadable flag blocks the mint rather
	// than letting it through.
	if !d.readBoolOr(ctx, collection, "mintingEnabled", false) {
		return nil, errorx.New(errorx.StateConflict, "Minting is disabled for this collection")
	}

	if d.readBoolOr(ctx, collection, "paused", true) {
		return nil, errorx.New(errorx.StateConflict, "Contract is paused")
	}

	supplyBefore, err := readTotalSupply(ctx, d.gateway, collection.Network, collection.Address)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read totalSupply of %s: %v", collection.Address, err)
		return nil, errorx.New(errorx.Unavailable, "Cannot read collection supply")
	}

	remaining := collection.MaxSupply - supplyBefore
	if int64(req.Quantity) > remaining {
		return nil, errorx.New(errorx.InsufficientSupply,
			"Quantity exceeds remaining supply: only %d tokens available", remaining)
	}

	gas := toChainGas(req.Gas)

	// Converge the on-chain base URI before any token exists at the new ids.
	baseURI := normalizeBaseURI(collection.BaseURI)
	_, err = confirmWrite(ctx, d.gateway, d.blockchainTxRepo,
		collection.Network, wallet, collection.Address, "setBaseURI", gas, baseURI)
	if err != nil {
		return nil, err
	}

	if baseURI != collection.BaseURI {
		if err := d.collectionRepo.UpdateBaseURI(ctx, collection.ID, baseURI); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot record normalized base URI of %s: %v", collection.ID, err)
		}
		collection.BaseURI = baseURI
	}

	txHash, err := confirmWrite(ctx, d.gateway, d.blockchainTxRepo,
		collection.Network, wallet, collection.Address, "mintBatch", gas,
		common.HexToAddress(req.Recipient), big.NewInt(int64(req.Quantity)))
	if err != nil {
		return nil, err
	}

	tokenIDs := make([]int64, 0, req.Quantity)
	for id := supplyBefore; id < supplyBefore+int64(req.Quantity); id++ {
		tokenIDs = append(tokenIDs, id)
	}

	if err := d.recordMint(ctx, collection, req, tokenIDs, txHash); err != nil {
		xcontext.Logger(ctx).Errorf(
			"Mint tx %s confirmed but ledger recording failed for %s: %v",
			txHash, collection.Address, err)
		return nil, errorx.New(errorx.ChainLedgerDiverged,
			"Minted on chain but recording failed for transaction %s", txHash)
	}

	// Phase 2 is repairable: failures are recorded per token, the mint
	// itself is already final.
	d.metadata.Generate(ctx, collection, tokenIDs)

	return &model.MintResponse{
		TxHash:      txHash,
		FromTokenID: tokenIDs[0],
		ToTokenID:   tokenIDs[len(tokenIDs)-1],
		TokenIDs:    tokenIDs,
	}, nil
}

func (d *mintDomain) recordMint(
	ctx context.Context,
	collection *entity.Collection,
	req *model.MintRequest,
	tokenIDs []int64,
	txHash string,
) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	now := time.Now()
	tokens := make([]*entity.Token, 0, len(tokenIDs))
	events := make([]*entity.TokenEvent, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		tokens = append(tokens, &entity.Token{
			CollectionID:        collection.ID,
			TokenID:             tokenID,
			CreatedAt:           sql.NullTime{Valid: true, Time: now},
			OwnerAddress:        req.Recipient,
			CurrentOwnerAddress: req.Recipient,
			MintPrice:           req.MintPrice,
		})
		events = append(events, newTokenEvent(ctx,
			collection.ID, tokenID, entity.TokenEventMint, zeroAddress, req.Recipient, txHash))
	}

	if err := d.tokenRepo.BulkInsert(ctx, tokens); err != nil {
		return err
	}

	if err := d.tokenEventRepo.BulkInsert(ctx, events); err != nil {
		return err
	}

	if err := d.collectionRepo.IncreaseMintedCount(ctx, collection.ID, int64(len(tokenIDs))); err != nil {
		return err
	}

	xcontext.WithCommitDBTransaction(ctx)
	return nil
}

func (d *mintDomain) RegenerateTokenMetadata(
	ctx context.Context, req *model.RegenerateTokenMetadataRequest,
) (*model.RegenerateTokenMetadataResponse, error) {
	collection, err := d.collectionRepo.GetByAddress(ctx, req.CollectionAddress)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get collection %s: %v", req.CollectionAddress, err)
		return nil, errorx.New(errorx.NotFound, "Not found collection")
	}

	if _, err := d.tokenRepo.Get(ctx, collection.ID, req.TokenID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get token %d of %s: %v", req.TokenID, collection.ID, err)
		return nil, errorx.New(errorx.NotFound, "Not found token")
	}

	uri, err := d.metadata.Regenerate(ctx, collection, req.TokenID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot regenerate metadata of token %d: %v", req.TokenID, err)
		return nil, errorx.New(errorx.Unavailable, "Cannot regenerate token metadata")
	}

	return &model.RegenerateTokenMetadataResponse{MetadataURI: uri}, nil
}

func (d *mintDomain) readBoolOr(
	ctx context.Context, collection *entity.Collection, function string, fallback bool,
) bool {
	results, err := d.gateway.ReadContract(ctx, collection.Network, collection.Address, function)
	if err != nil || len(results) == 0 {
		xcontext.Logger(ctx).Warnf("Cannot read %s of %s: %v", function, collection.Address, err)
		return fallback
	}

	value, ok := results[0].(bool)
	if !ok {
		return fallback
	}

	return value
}

// normalizeBaseURI strips a trailing metadata filename from the stored base
// URI, so "ipfs://x/1.json" and "ipfs://x/" both come out as "ipfs://x/".
func normalizeBaseURI(uri string) string {
	slash := strings.LastIndex(uri, "/")
	if slash < 0 || slash == len(uri)-1 {
		return uri
	}

	if last := uri[slash+1:]; strings.Contains(last, ".") {
		return uri[:slash+1]
	}

	return uri
}
