package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Theme is an immutable catalog entry linking cards to a semantic category.
type Theme struct {
	ID        uuid.UUID                    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string                       `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Embedding datatypes.JSONSlice[float32] `gorm:"column:embedding" json:"embedding,omitempty"`
	CreatedAt time.Time                    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time                    `gorm:"not null;default:now()" json:"updated_at"`
}

func (Theme) TableName() string {
	return "theme"
}

// UserTheme is one persona weight row. SubjectID holds either a user id or an
// anonymous session id; IsAnonymous partitions the two populations.
type UserTheme struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID   string    `gorm:"not null;uniqueIndex:idx_subject_theme;column:subject_id" json:"subject_id"`
	ThemeID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subject_theme;column:theme_id" json:"theme_id"`
	IsAnonymous bool      `gorm:"not null;default:false;column:is_anonymous" json:"is_anonymous"`
	Weight      float64   `gorm:"not null;column:weight" json:"weight"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserTheme) TableName() string {
	return "user_theme"
}
