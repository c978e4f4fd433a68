package repository

import (
	"context"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PlayerAssetRepository interface {
	Get(ctx context.Context, userID, assetID string) (*entity.PlayerAsset, error)

	// Add applies one additive balance update for the (user, asset) pair,
	// creating the row if it does not exist yet.
	Add(ctx context.Context, userID, assetID string, amount float64) error
}

type playerAssetRepository struct{}

func NewPlayerAssetRepository() *playerAssetRepository {
	return &playerAssetRepository{}
}

func (r *playerAssetRepository) Get(ctx context.Context, userID, assetID string) (*entity.PlayerAsset, error) {
	var result entity.PlayerAsset
	err := xcontext.DB(ctx).Take(&result, "user_id=? AND asset_id=?", userID, assetID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *playerAssetRepository) Add(ctx context.Context, userID, assetID string, amount float64) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "asset_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance": gorm.Expr("balance + ?", amount),
			}),
		}).
		Create(&entity.PlayerAsset{
			UserID:  userID,
			AssetID: assetID,
			Balance: amount,
		}).Error
}
