package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

type EscrowWalletRepository interface {
	Create(context.Context, *entity.EscrowWallet) error
	GetByID(context.Context, string) (*entity.EscrowWallet, error)
	GetByAddress(context.Context, string) (*entity.EscrowWallet, error)
}

type escrowWalletRepository struct{}

func NewEscrowWalletRepository() *escrowWalletRepository {
	return &escrowWalletRepository{}
}

func (r *escrowWalletRepository) Create(ctx context.Context, wallet *entity.EscrowWallet) error {
	return xcontext.DB(ctx).Create(wallet).Error
}

func (r *escrowWalletRepository) GetByID(ctx context.Context, id string) (*entity.EscrowWallet, error) {
	var result entity.EscrowWallet
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *escrowWalletRepository) GetByAddress(ctx context.Context, address string) (*entity.EscrowWallet, error) {
	var result entity.EscrowWallet
	if err := xcontext.DB(ctx).Take(&result, "address=?", address).Error; err != nil {
		return nil, err
	}

	return &result, nil
}
