package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type CardRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Card, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, cardIDs []uuid.UUID) ([]*types.Card, error)
	ListRelevance(ctx context.Context, tx *gorm.DB) ([]*types.CardTheme, error)
	CreateMany(ctx context.Context, tx *gorm.DB, cards []*types.Card) error
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, embedding []float32) error
}

type cardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCardRepo(db *gorm.DB, baseLog *logger.Logger) CardRepo {
	return &cardRepo{db: db, log: baseLog.With("repo", "CardRepo")}
}

func (cr *cardRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Card
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *cardRepo) GetByIDs(ctx context.Context, tx *gorm.DB, cardIDs []uuid.UUID) ([]*types.Card, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Card
	if len(cardIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", cardIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *cardRepo) ListRelevance(ctx context.Context, tx *gorm.DB) ([]*types.CardTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CardTheme
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *cardRepo) CreateMany(ctx context.Context, tx *gorm.DB, cards []*types.Card) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(cards) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&cards).Error
}

func (cr *cardRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, embedding []float32) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Card{}).
		Where("id = ?", cardID).
		Update("embedding", datatypes.NewJSONSlice(embedding)).Error
}
