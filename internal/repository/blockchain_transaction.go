package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

type BlockchainTransactionRepository interface {
	Create(context.Context, *entity.BlockchainTransaction) error
	GetByTxHash(context.Context, string) (*entity.BlockchainTransaction, error)
	GetAllInProgress(context.Context) ([]entity.BlockchainTransaction, error)
	UpdateStatusByTxHash(ctx context.Context, txHash string, status entity.BlockchainTransactionStatusType) error
}

type blockchainTransactionRepository struct{}

func NewBlockchainTransactionRepository() *blockchainTransactionRepository {
	return &blockchainTransactionRepository{}
}

func (r *blockchainTransactionRepository) Create(ctx context.Context, tx *entity.BlockchainTransaction) error {
	return xcontext.DB(ctx).Create(tx).Error
}

func (r *blockchainTransactionRepository) GetByTxHash(
	ctx context.Context, txHash string,
) (*entity.BlockchainTransaction, error) {
	var result entity.BlockchainTransaction
	if err := xcontext.DB(ctx).Take(&result, "tx_hash=?", txHash).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *blockchainTransactionRepository) GetAllInProgress(
	ctx context.Context,
) ([]entity.BlockchainTransaction, error) {
	var result []entity.BlockchainTransaction
	err := xcontext.DB(ctx).
		Find(&result, "status=?", entity.BlockchainTransactionInProgress).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *blockchainTransactionRepository) UpdateStatusByTxHash(
	ctx context.Context, txHash string, status entity.BlockchainTransactionStatusType,
) error {
	return xcontext.DB(ctx).
		Model(&entity.BlockchainTransaction{}).
		Where("tx_hash=?", txHash).
		Update("status", status).Error
}
