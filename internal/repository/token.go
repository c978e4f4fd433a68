package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"gorm.io/gorm"
)

type TokenRepository interface {
	BulkInsert(context.Context, []*entity.Token) error
	Get(ctx context.Context, collectionID string, tokenID int64) (*entity.Token, error)
	GetByIDs(ctx context.Context, collectionID string, tokenIDs []int64) ([]entity.Token, error)
	GetAvailableByOwner(ctx context.Context, collectionID, owner string, limit int) ([]entity.Token, error)
	GetStakedBefore(ctx context.Context, collectionID string, cutoff time.Time) ([]entity.Token, error)
	GetAllByCollection(ctx context.Context, collectionID string) ([]entity.Token, error)
	Count(ctx context.Context, collectionID string) (int64, error)
	UpdateOwner(ctx context.Context, collectionID string, tokenIDs []int64, newOwner, newUserID string, transferredAt time.Time) error
	UpdateCurrentOwner(ctx context.Context, collectionID string, tokenID int64, owner string) error
	SetStaked(ctx context.Context, collectionID string, tokenIDs []int64, stakedAt time.Time, unlockAt sql.NullTime) error
	ClearStaked(ctx context.Context, collectionID string, tokenIDs []int64) error
	UpdateMetadataURI(ctx context.Context, collectionID string, tokenID int64, uri string) error
}

type tokenRepository struct{}

func NewTokenRepository() *tokenRepository {
	return &tokenRepository{}
}

func (r *tokenRepository) BulkInsert(ctx context.Context, tokens []*entity.Token) error {
	return xcontext.DB(ctx).Create(tokens).Error
}

func (r *tokenRepository) Get(ctx context.Context, collectionID string, tokenID int64) (*entity.Token, error) {
	var result entity.Token
	err := xcontext.DB(ctx).
		Take(&result, "collection_id=? AND token_id=?", collectionID, tokenID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *tokenRepository) GetByIDs(ctx context.Context, collectionID string, tokenIDs []int64) ([]entity.Token, error) {
	var result []entity.Token
	err := xcontext.DB(ctx).
		Where("collection_id=? AND token_id IN (?)", collectionID, tokenIDs).
		Order("token_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tokenRepository) GetAvailableByOwner(
	ctx context.Context, collectionID, owner string, limit int,
) ([]entity.Token, error) {
	var result []entity.Token
	err := xcontext.DB(ctx).
		Where("collection_id=? AND owner_address=?", collectionID, owner).
		Where("is_burned=? AND is_locked=? AND is_staked=?", false, false, false).
		Order("token_id ASC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tokenRepository) GetStakedBefore(
	ctx context.Context, collectionID string, cutoff time.Time,
) ([]entity.Token, error) {
	var result []entity.Token
	err := xcontext.DB(ctx).
		Where("collection_id=? AND is_staked=?", collectionID, true).
		Where("staked_at IS NOT NULL AND staked_at <= ?", cutoff).
		Order("token_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tokenRepository) GetAllByCollection(ctx context.Context, collectionID string) ([]entity.Token, error) {
	var result []entity.Token
	err := xcontext.DB(ctx).
		Where("collection_id=?", collectionID).
		Order("token_id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tokenRepository) Count(ctx context.Context, collectionID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.Token{}).
		Where("collection_id=?", collectionID).
		Count(&count).Error

	return count, err
}

func (r *tokenRepository) UpdateOwner(
	ctx context.Context, collectionID string, tokenIDs []int64, newOwner, newUserID string, transferredAt time.Time,
) error {
	return xcontext.DB(ctx).
		Model(&entity.Token{}).
		Where("collection_id=? AND token_id IN (?)", collectionID, tokenIDs).
		Updates(map[string]any{
			"owner_address":         newOwner,
			"current_owner_address": newOwner,
			"user_id":               newUserID,
			"transfer_count":        gorm.Expr("transfer_count + 1"),
			"last_transferred_at":   sql.NullTime{Valid: true, Time: transferredAt},
		}).Error
}

func (r *tokenRepository) UpdateCurrentOwner(
	ctx context.Context, collectionID string, tokenID int64, owner string,
) error {
	return xcontext.DB(ctx).
		Model(&entity.Token{}).
		Where("collection_id=? AND token_id=?", collectionID, tokenID).
		Update("current_owner_address", owner).Error
}

func (r *tokenRepository) SetStaked(
	ctx context.Context, collectionID string, tokenIDs []int64, stakedAt time.Time, unlockAt sql.NullTime,
) error {
	return xcontext.DB(ctx).
		Model(&entity.Token{}).
		Where("collection_id=? AND token_id IN (?)", collectionID, tokenIDs).
		Updates(map[string]any{
			"is_staked": true,
			"staked_at": sql.NullTime{Valid: true, Time: stakedAt},
			"unlock_at": unlockAt,
		}).Error
}

func (r *tokenRepository) ClearStaked(ctx context.Context, collectionID string, tokenIDs []int64) error {
	return xcontext.DB(ctx).
		Model(&entity.Token{}).
		Where("collection_id=? AND token_id IN (?)", collectionID, tokenIDs).
		Updates(map[string]any{
			"is_staked": false,
			"staked_at": sql.NullTime{},
			"unlock_at": sql.NullTime{},
		}).Error
}

func (r *tokenRepository) UpdateMetadataURI(
	ctx context.Context, collectionID string, tokenID int64, uri string,
) error {
	return xcontext.DB(ctx).
		Model(&entity.Token{}).
		Where("collection_id=? AND token_id=?", collectionID, tokenID).
		Update("metadata_uri", uri).Error
}
