package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type SpreadRepo interface {
	ListPublic(ctx context.Context, tx *gorm.DB) ([]*types.Spread, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Spread, error)
	GetByID(ctx context.Context, tx *gorm.DB, spreadID uuid.UUID) (*types.Spread, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	CreateMany(ctx context.Context, tx *gorm.DB, spreads []*types.Spread) error
}

type spreadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpreadRepo(db *gorm.DB, baseLog *logger.Logger) SpreadRepo {
	return &spreadRepo{db: db, log: baseLog.With("repo", "SpreadRepo")}
}

func (sr *spreadRepo) ListPublic(ctx context.Context, tx *gorm.DB) ([]*types.Spread, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Spread
	if err := transaction.WithContext(ctx).
		Where("is_public = ?", true).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *spreadRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Spread, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Spread
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *spreadRepo) GetByID(ctx context.Context, tx *gorm.DB, spreadID uuid.UUID) (*types.Spread, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.Spread
	err := transaction.WithContext(ctx).
		Where("id = ?", spreadID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *spreadRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Spread{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (sr *spreadRepo) CreateMany(ctx context.Context, tx *gorm.DB, spreads []*types.Spread) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(spreads) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&spreads).Error
}
