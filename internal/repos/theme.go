package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type ThemeRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Theme, error)
	CreateMany(ctx context.Context, tx *gorm.DB, themes []*types.Theme) error
}

type themeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThemeRepo(db *gorm.DB, baseLog *logger.Logger) ThemeRepo {
	return &themeRepo{db: db, log: baseLog.With("repo", "ThemeRepo")}
}

func (tr *themeRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Theme, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Theme
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *themeRepo) CreateMany(ctx context.Context, tx *gorm.DB, themes []*types.Theme) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(themes) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&themes).Error
}
