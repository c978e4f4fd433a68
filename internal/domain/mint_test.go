package domain

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/testutil"
	"github.com/stretchr/testify/require"
)

// mintChainState simulates a collection contract whose supply grows when
// mintBatch lands, so derived id ranges can be checked across calls.
type mintChainState struct {
	mutex  sync.Mutex
	supply int64
	writes []string
}

func (s *mintChainState) gateway() *testutil.MockGateway {
	return &testutil.MockGateway{
		ReadContractFunc: func(
			ctx context.Context, network, address, function string, args ...any,
		) ([]any, error) {
			s.mutex.Lock()
			defer s.mutex.Unlock()

			switch function {
			case "mintingEnabled":
				return []any{true}, nil
			case "paused":
				return []any{false}, nil
			case "totalSupply":
				return []any{big.NewInt(s.supply)}, nil
			}

			return nil, nil
		},
		WriteContractFunc: func(
			ctx context.Context,
			network string,
			signer *entity.EscrowWallet,
			address, function string,
			gas chain.GasOptions,
			args ...any,
		) (string, error) {
			s.mutex.Lock()
			defer s.mutex.Unlock()

			s.writes = append(s.writes, function)
			if function == "mintBatch" {
				s.supply += args[1].(*big.Int).Int64()
			}

			return "0xmint", nil
		},
	}
}

func newMintDomainForTest(chainState *mintChainState) *mintDomain {
	tokenRepo := repository.NewTokenRepository()
	failureRepo := repository.NewTokenMetadataFailureRepository()
	return NewMintDomain(
		repository.NewCollectionRepository(),
		repository.NewEscrowWalletRepository(),
		tokenRepo,
		repository.NewTokenEventRepository(),
		repository.NewBlockchainTransactionRepository(),
		chainState.gateway(),
		chain.NewWalletLocker(),
		NewMetadataGenerator(&testutil.MockStorage{}, tokenRepo, failureRepo),
	)
}

func Test_mintDomain_Mint(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 5)
	testutil.InsertEscrowWallet(ctx)

	chainState := &mintChainState{supply: 5}
	mintDomain := newMintDomainForTest(chainState)

	resp, err := mintDomain.Mint(ctx, &model.MintRequest{
		CollectionAddress: testutil.CollectionAddress,
		Recipient:         testutil.BuyerAddress,
		Quantity:          3,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{5, 6, 7}, resp.TokenIDs)
	require.Equal(t, int64(5), resp.FromTokenID)
	require.Equal(t, int64(7), resp.ToTokenID)
	require.Equal(t, []string{"setBaseURI", "mintBatch"}, chainState.writes)

	// Token rows, events and the counter land together.
	token, err := mintDomain.tokenRepo.Get(ctx, collection.ID, 5)
	require.NoError(t, err)
	require.Equal(t, testutil.BuyerAddress, token.OwnerAddress)
	require.NotEmpty(t, token.MetadataURI)

	events, err := mintDomain.tokenEventRepo.GetByToken(ctx, collection.ID, 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, entity.TokenEventMint, events[0].Type)

	updated, err := mintDomain.collectionRepo.GetByID(ctx, collection.ID)
	require.NoError(t, err)
	require.Equal(t, int64(8), updated.MintedCount)

	// A second mint derives its ids from the new supply; ranges never
	// overlap.
	resp, err = mintDomain.Mint(ctx, &model.MintRequest{
		CollectionAddress: testutil.CollectionAddress,
		Recipient:         testutil.BuyerAddress,
		Quantity:          2,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{8, 9}, resp.TokenIDs)
}

func Test_mintDomain_Mint_insufficientSupply(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertCollection(ctx, 100, 95)
	testutil.InsertEscrowWallet(ctx)

	chainState := &mintChainState{supply: 95}
	mintDomain := newMintDomainForTest(chainState)

	_, err := mintDomain.Mint(ctx, &model.MintRequest{
		CollectionAddress: testutil.CollectionAddress,
		Recipient:         testutil.BuyerAddress,
		Quantity:          10,
	})
	require.Error(t, err)
	require.Equal(t, "Quantity exceeds remaining supply: only 5 tokens available", err.Error())

	// No write was issued.
	require.Empty(t, chainState.writes)
}

func Test_mintDomain_Mint_failSafeGateReads(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertCollection(ctx, 100, 0)
	testutil.InsertEscrowWallet(ctx)

	chainState := &mintChainState{}
	mintDomain := newMintDomainForTest(chainState)

	// An unreadable mintingEnabled flag blocks the mint.
	mintDomain.gateway = &testutil.MockGateway{}

	_, err := mintDomain.Mint(ctx, &model.MintRequest{
		CollectionAddress: testutil.CollectionAddress,
		Recipient:         testutil.BuyerAddress,
		Quantity:          1,
	})
	require.Error(t, err)
	require.Equal(t, "Minting is disabled for this collection", err.Error())
}

func Test_mintDomain_Mint_validation(t *testing.T) {
	ctx := testutil.MockContext()
	chainState := &mintChainState{}
	mintDomain := newMintDomainForTest(chainState)

	_, err := mintDomain.Mint(ctx, &model.MintRequest{
		CollectionAddress: "not-an-address",
		Recipient:         testutil.BuyerAddress,
		Quantity:          1,
	})
	require.Error(t, err)
	require.Equal(t, "Invalid collection address", err.Error())

	_, err = mintDomain.Mint(ctx, &model.MintRequest{
		CollectionAddress: testutil.CollectionAddress,
		Recipient:         testutil.BuyerAddress,
		Quantity:          0,
	})
	require.Error(t, err)
	require.Equal(t, "Quantity must be positive", err.Error())
}

func Test_normalizeBaseURI(t *testing.T) {
	require.Equal(t, "ipfs://stars/", normalizeBaseURI("ipfs://stars/"))
	require.Equal(t, "ipfs://stars/", normalizeBaseURI("ipfs://stars/0.json"))
	require.Equal(t, "https://meta.test/v1/", normalizeBaseURI("https://meta.test/v1/index.json"))
}
