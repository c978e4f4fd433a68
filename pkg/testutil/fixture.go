package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/repository"
)

const (
	// Fixture addresses are well-formed but meaningless.
	EscrowAddress     = "0x1111111111111111111111111111111111111111"
	CollectionAddress = "0x2222222222222222222222222222222222222222"
	BuyerAddress      = "0x3333333333333333333333333333333333333333"
)

func InsertCollection(ctx context.Context, maxSupply, mintedCount int64) *entity.Collection {
	collection := &entity.Collection{
		Base:           entity.Base{ID: "collection1"},
		Address:        CollectionAddress,
		Network:        "testnet",
		Name:           "Stars",
		MaxSupply:      maxSupply,
		MintedCount:    mintedCount,
		BaseURI:        "ipfs://stars/",
		CreatorAddress: EscrowAddress,
	}

	if err := repository.NewCollectionRepository().Create(ctx, collection); err != nil {
		panic(err)
	}

	return collection
}

func InsertEscrowWallet(ctx context.Context) *entity.EscrowWallet {
	wallet := &entity.EscrowWallet{
		Base:        entity.Base{ID: "wallet1"},
		Address:     EscrowAddress,
		WalletNonce: "nonce1",
	}

	if err := repository.NewEscrowWalletRepository().Create(ctx, wallet); err != nil {
		panic(err)
	}

	return wallet
}

func InsertToken(ctx context.Context, collectionID string, tokenID int64, owner string) *entity.Token {
	token := &entity.Token{
		CollectionID:        collectionID,
		TokenID:             tokenID,
		OwnerAddress:        owner,
		CurrentOwnerAddress: owner,
		UserID:              "user1",
	}

	if err := repository.NewTokenRepository().BulkInsert(ctx, []*entity.Token{token}); err != nil {
		panic(err)
	}

	return token
}

func InsertStakedToken(
	ctx context.Context, collectionID string, tokenID int64, owner string, stakedAt time.Time,
) *entity.Token {
	token := &entity.Token{
		CollectionID:        collectionID,
		TokenID:             tokenID,
		OwnerAddress:        owner,
		CurrentOwnerAddress: owner,
		UserID:              "user1",
		IsStaked:            true,
		StakedAt:            sql.NullTime{Valid: true, Time: stakedAt},
	}

	if err := repository.NewTokenRepository().BulkInsert(ctx, []*entity.Token{token}); err != nil {
		panic(err)
	}

	return token
}

func InsertPayment(ctx context.Context, id string, quantity int, status entity.PaymentStatusType) *entity.Payment {
	payment := &entity.Payment{
		Base:                  entity.Base{ID: id},
		UserID:                "user1",
		ProductTable:          entity.PaymentProductNFT,
		ProductID:             "collection1",
		Quantity:              quantity,
		ReceiverWalletAddress: BuyerAddress,
		Status:                status,
	}

	if err := repository.NewPaymentRepository().Create(ctx, payment); err != nil {
		panic(err)
	}

	return payment
}

func InsertStakeReward(ctx context.Context, id, assetID string, amount float64, duration time.Duration) *entity.StakeReward {
	reward := &entity.StakeReward{
		Base:              entity.Base{ID: id},
		CollectionAddress: CollectionAddress,
		AssetID:           assetID,
		Amount:            amount,
		StakeDuration:     duration,
	}

	if err := repository.NewStakeRewardRepository().Create(ctx, reward); err != nil {
		panic(err)
	}

	return reward
}
