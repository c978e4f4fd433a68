package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type TokenMetadataFailureRepository interface {
	Upsert(context.Context, *entity.TokenMetadataFailure) error
	Delete(ctx context.Context, collectionID string, tokenID int64) error
	GetByCollection(ctx context.Context, collectionID string) ([]entity.TokenMetadataFailure, error)
}

type tokenMetadataFailureRepository struct{}

func NewTokenMetadataFailureRepository() *tokenMetadataFailureRepository {
	return &tokenMetadataFailureRepository{}
}

func (r *tokenMetadataFailureRepository) Upsert(ctx context.Context, failure *entity.TokenMetadataFailure) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection_id"}, {Name: "token_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason"}),
		}).
		Create(failure).Error
}

func (r *tokenMetadataFailureRepository) Delete(ctx context.Context, collectionID string, tokenID int64) error {
	return xcontext.DB(ctx).
		Delete(&entity.TokenMetadataFailure{}, "collection_id=? AND token_id=?", collectionID, tokenID).Error
}

func (r *tokenMetadataFailureRepository) GetByCollection(
	ctx context.Context, collectionID string,
) ([]entity.TokenMetadataFailure, error) {
	var result []entity.TokenMetadataFailure
	if err := xcontext.DB(ctx).Find(&result, "collection_id=?", collectionID).Error; err != nil {
		return nil, err
	}

	return result, nil
}
