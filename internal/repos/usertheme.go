package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type UserThemeRepo interface {
	ListBySubject(ctx context.Context, tx *gorm.DB, subjectID string) ([]*types.UserTheme, error)
	Get(ctx context.Context, tx *gorm.DB, subjectID string, themeID uuid.UUID) (*types.UserTheme, error)
	UpsertMany(ctx context.Context, tx *gorm.DB, rows []*types.UserTheme) error
	SetWeight(ctx context.Context, tx *gorm.DB, subjectID string, themeID uuid.UUID, weight float64, updatedAt time.Time) error
	DistinctSubjects(ctx context.Context, tx *gorm.DB) ([]string, error)
	DeleteBySubject(ctx context.Context, tx *gorm.DB, subjectID string) error
}

type userThemeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserThemeRepo(db *gorm.DB, baseLog *logger.Logger) UserThemeRepo {
	return &userThemeRepo{db: db, log: baseLog.With("repo", "UserThemeRepo")}
}

func (ur *userThemeRepo) ListBySubject(ctx context.Context, tx *gorm.DB, subjectID string) ([]*types.UserTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*types.UserTheme
	if err := transaction.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userThemeRepo) Get(ctx context.Context, tx *gorm.DB, subjectID string, themeID uuid.UUID) (*types.UserTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var result types.UserTheme
	err := transaction.WithContext(ctx).
		Where("subject_id = ? AND theme_id = ?", subjectID, themeID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ur *userThemeRepo) UpsertMany(ctx context.Context, tx *gorm.DB, rows []*types.UserTheme) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "theme_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight", "updated_at"}),
		}).
		Create(&rows).Error
}

func (ur *userThemeRepo) SetWeight(ctx context.Context, tx *gorm.DB, subjectID string, themeID uuid.UUID, weight float64, updatedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	return transaction.WithContext(ctx).
		Model(&types.UserTheme{}).
		Where("subject_id = ? AND theme_id = ?", subjectID, themeID).
		Updates(map[string]any{
			"weight":     weight,
			"updated_at": updatedAt,
		}).Error
}

func (ur *userThemeRepo) DistinctSubjects(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []string
	if err := transaction.WithContext(ctx).
		Model(&types.UserTheme{}).
		Distinct("subject_id").
		Pluck("subject_id", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userThemeRepo) DeleteBySubject(ctx context.Context, tx *gorm.DB, subjectID string) error {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	return transaction.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Delete(&types.UserTheme{}).Error
}
