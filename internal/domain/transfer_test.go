package domain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/rs-ent/starglow-sub013/internal/chain"
	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/model"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/ethutil"
	"github.com/rs-ent/starglow-sub013/pkg/pubsub"
	"github.com/rs-ent/starglow-sub013/pkg/testutil"
	"github.com/stretchr/testify/require"
)

// escrowChainState simulates a collection whose ownership mapping is fixed:
// the given ids belong to the escrow, the rest to the buyer.
type escrowChainState struct {
	supply    int64
	escrowIDs map[int64]bool
	writes    []string
}

func (s *escrowChainState) gateway() *testutil.MockGateway {
	return &testutil.MockGateway{
		ReadContractFunc: func(
			ctx context.Context, network, address, function string, args ...any,
		) ([]any, error) {
			switch function {
			case "totalSupply":
				return []any{big.NewInt(s.supply)}, nil
			case "ownerOf":
				tokenID := args[0].(*big.Int).Int64()
				if s.escrowIDs[tokenID] {
					return []any{common.HexToAddress(testutil.EscrowAddress)}, nil
				}

				return []any{common.HexToAddress(testutil.BuyerAddress)}, nil
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
			s.writes = append(s.writes, function)
			return "0xtransfer", nil
		},
	}
}

func newTransferDomainForTest(chainState *escrowChainState, publisher pubsub.Publisher) *transferDomain {
	return NewTransferDomain(
		repository.NewPaymentRepository(),
		repository.NewCollectionRepository(),
		repository.NewEscrowWalletRepository(),
		repository.NewTokenRepository(),
		repository.NewTokenEventRepository(),
		repository.NewBlockchainTransactionRepository(),
		chainState.gateway(),
		chain.NewWalletLocker(),
		publisher,
	)
}

func Test_transferDomain_FulfillFromEscrow_poolExhaustion(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.InsertCollection(ctx, 100, 10)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertPayment(ctx, "payment1", 4, entity.PaymentPaid)

	chainState := &escrowChainState{supply: 10, escrowIDs: map[int64]bool{3: true, 7: true, 9: true}}
	transferDomain := newTransferDomainForTest(chainState, &testutil.MockPublisher{})

	_, err := transferDomain.FulfillFromEscrow(ctx, "payment1")
	require.Error(t, err)
	require.Equal(t, "insufficient on-chain inventory: required 4, available 3", err.Error())
	require.Empty(t, chainState.writes)
}

func Test_transferDomain_FulfillFromEscrow_deterministicSelection(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 13)
	testutil.InsertEscrowWallet(ctx)
	testutil.InsertPayment(ctx, "payment1", 2, entity.PaymentPaid)
	testutil.InsertPayment(ctx, "payment2", 2, entity.PaymentPaid)
	for _, id := range []int64{3, 7, 9, 12} {
		testutil.InsertToken(ctx, collection.ID, id, testutil.EscrowAddress)
	}

	published := 0
	chainState := &escrowChainState{
		supply:    13,
		escrowIDs: map[int64]bool{3: true, 7: true, 9: true, 12: true},
	}
	transferDomain := newTransferDomainForTest(chainState, &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, topic string, pack *pubsub.Pack) error {
			published++
			return nil
		},
	})

	resp, err := transferDomain.FulfillFromEscrow(ctx, "payment1")
	require.NoError(t, err)
	require.Equal(t, []int64{3, 7}, resp.TokenIDs)
	require.Equal(t, 1, published)

	// The ledger reflects the transfer.
	token, err := transferDomain.tokenRepo.Get(ctx, collection.ID, 3)
	require.NoError(t, err)
	require.Equal(t, testutil.BuyerAddress, token.OwnerAddress)
	require.Equal(t, 1, token.TransferCount)
	require.True(t, token.LastTransferredAt.Valid)

	// An invocation observing the same chain state selects the same ids.
	resp, err = transferDomain.FulfillFromEscrow(ctx, "payment2")
	require.NoError(t, err)
	require.Equal(t, []int64{3, 7}, resp.TokenIDs)
}

func Test_transferDomain_TransferWithAuthorization(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 10)
	testutil.InsertEscrowWallet(ctx)

	ownerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	owner := ethcrypto.PubkeyToAddress(ownerKey.PublicKey).Hex()

	testutil.InsertToken(ctx, collection.ID, 1, owner)
	testutil.InsertToken(ctx, collection.ID, 2, owner)

	payment := &entity.Payment{
		Base:                  entity.Base{ID: "payment1"},
		UserID:                "user1",
		ProductTable:          entity.PaymentProductNFT,
		ProductID:             collection.ID,
		Quantity:              2,
		ReceiverWalletAddress: testutil.BuyerAddress,
		Status:                entity.PaymentPaid,
	}
	require.NoError(t, repository.NewPaymentRepository().Create(ctx, payment))

	authorizations := []model.TransferAuthorization{}
	for _, tokenID := range []int64{1, 2} {
		signature, err := ethcrypto.Sign(
			ethutil.PersonalSignHash(transferAuthMessage(owner, testutil.BuyerAddress, tokenID)).Bytes(),
			ownerKey)
		require.NoError(t, err)

		authorizations = append(authorizations, model.TransferAuthorization{
			TokenID:   tokenID,
			Signature: hexutil.Encode(signature),
		})
	}

	chainState := &escrowChainState{supply: 10}
	transferDomain := newTransferDomainForTest(chainState, &testutil.MockPublisher{})

	resp, err := transferDomain.TransferWithAuthorization(ctx, &model.TransferWithAuthorizationRequest{
		PaymentID:      "payment1",
		FromAddress:    owner,
		ToAddress:      testutil.BuyerAddress,
		Authorizations: authorizations,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, resp.TokenIDs)
	require.Equal(t, []string{"batchTransferFrom"}, chainState.writes)

	// The payment reached completed with the outcome payload attached.
	updated, err := transferDomain.paymentRepo.GetByID(ctx, "payment1")
	require.NoError(t, err)
	require.Equal(t, entity.PaymentCompleted, updated.Status)
	require.Equal(t, "0xtransfer", updated.PostProcessResult["tx_hash"])
}

func Test_transferDomain_TransferWithAuthorization_missingAuthorization(t *testing.T) {
	ctx := testutil.MockContext()
	collection := testutil.InsertCollection(ctx, 100, 10)
	testutil.InsertEscrowWallet(ctx)

	ownerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	owner := ethcrypto.PubkeyToAddress(ownerKey.PublicKey).Hex()
	testutil.InsertToken(ctx, collection.ID, 1, owner)

	payment := &entity.Payment{
		Base:                  entity.Base{ID: "payment1"},
		ProductTable:          entity.PaymentProductNFT,
		ProductID:             collection.ID,
		Quantity:              1,
		ReceiverWalletAddress: testutil.BuyerAddress,
		Status:                entity.PaymentPaid,
	}
	require.NoError(t, repository.NewPaymentRepository().Create(ctx, payment))

	chainState := &escrowChainState{supply: 10}
	transferDomain := newTransferDomainForTest(chainState, &testutil.MockPublisher{})

	// No signature at all.
	_, err = transferDomain.TransferWithAuthorization(ctx, &model.TransferWithAuthorizationRequest{
		PaymentID:   "payment1",
		FromAddress: owner,
		ToAddress:   testutil.BuyerAddress,
	})
	require.Error(t, err)
	require.Equal(t, "Missing authorization for token 1", err.Error())
	require.Empty(t, chainState.writes)

	// A signature from the wrong key is rejected too.
	strangerKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signature, err := ethcrypto.Sign(
		ethutil.PersonalSignHash(transferAuthMessage(owner, testutil.BuyerAddress, 1)).Bytes(),
		strangerKey)
	require.NoError(t, err)

	_, err = transferDomain.TransferWithAuthorization(ctx, &model.TransferWithAuthorizationRequest{
		PaymentID:   "payment1",
		FromAddress: owner,
		ToAddress:   testutil.BuyerAddress,
		Authorizations: []model.TransferAuthorization{
			{TokenID: 1, Signature: hexutil.Encode(signature)},
		},
	})
	require.Error(t, err)
	require.Equal(t, "Invalid authorization for token 1", err.Error())
	require.Empty(t, chainState.writes)
}
