package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"gorm.io/gorm"
)

type CollectionRepository interface {
	Create(context.Context, *entity.Collection) error
	GetByID(context.Context, string) (*entity.Collection, error)
	GetByAddress(context.Context, string) (*entity.Collection, error)
	GetAll(context.Context) ([]entity.Collection, error)
	IncreaseMintedCount(ctx context.Context, id string, delta int64) error
	UpdateBaseURI(ctx context.Context, id, baseURI string) error
}

type collectionRepository struct{}

func NewCollectionRepository() *collectionRepository {
	return &collectionRepository{}
}

func (r *collectionRepository) Create(ctx context.Context, collection *entity.Collection) error {
	return xcontext.DB(ctx).Create(collection).Error
}

func (r *collectionRepository) GetByID(ctx context.Context, id string) (*entity.Collection, error) {
	var result entity.Collection
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *collectionRepository) GetByAddress(ctx context.Context, address string) (*entity.Collection, error) {
	var result entity.Collection
	if err := xcontext.DB(ctx).Take(&result, "address=?", address).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *collectionRepository) GetAll(ctx context.Context) ([]entity.Collection, error) {
	var result []entity.Collection
	if err := xcontext.DB(ctx).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *collectionRepository) IncreaseMintedCount(ctx context.Context, id string, delta int64) error {
	return xcontext.DB(ctx).
		Model(&entity.Collection{}).
		Where("id = ?", id).
		Update("minted_count", gorm.Expr("minted_count + ?", delta)).Error
}

func (r *collectionRepository) UpdateBaseURI(ctx context.Context, id, baseURI string) error {
	return xcontext.DB(ctx).
		Model(&entity.Collection{}).
		Where("id = ?", id).
		Update("base_uri", baseURI).Error
}
