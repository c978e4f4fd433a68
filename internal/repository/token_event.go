package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
)

type TokenEventRepository interface {
	BulkInsert(context.Context, []*entity.TokenEvent) error
	GetByToken(ctx context.Context, collectionID string, tokenID int64) ([]entity.TokenEvent, error)
}

type tokenEventRepository struct{}

func NewTokenEventRepository() *tokenEventRepository {
	return &tokenEventRepository{}
}

func (r *tokenEventRepository) BulkInsert(ctx context.Context, events []*entity.TokenEvent) error {
	return xcontext.DB(ctx).Create(events).Error
}

func (r *tokenEventRepository) GetByToken(
	ctx context.Context, collectionID string, tokenID int64,
) ([]entity.TokenEvent, error) {
	var result []entity.TokenEvent
	err := xcontext.DB(ctx).
		Where("collection_id=? AND token_id=?", collectionID, tokenID).
		Order("id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
