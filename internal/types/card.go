package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ArcanaMajor = "major"
	ArcanaMinor = "minor"
)

// Card is an immutable catalog entry. Embedding holds the precomputed
// description embedding used for semantic ranking.
type Card struct {
	ID          uuid.UUID                    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string                       `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Arcana      string                       `gorm:"not null;column:arcana" json:"arcana"`
	Suit        string                       `gorm:"column:suit" json:"suit,omitempty"`
	Rank        int                          `gorm:"column:rank" json:"rank,omitempty"`
	Description string                       `gorm:"not null;column:description" json:"description"`
	Symbols     datatypes.JSONSlice[string]  `gorm:"column:symbols" json:"symbols,omitempty"`
	ImageURL    string                       `gorm:"column:image_url" json:"image_url,omitempty"`
	Embedding   datatypes.JSONSlice[float32] `gorm:"column:embedding" json:"embedding,omitempty"`
	CreatedAt   time.Time                    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time                    `gorm:"not null;default:now()" json:"updated_at"`
}

func (Card) TableName() string {
	return "card"
}

// CardTheme weights a card's relevance to a theme, in [0, 1].
type CardTheme struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CardID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_card_theme;column:card_id" json:"card_id"`
	ThemeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_card_theme;column:theme_id" json:"theme_id"`
	Relevance float64   `gorm:"not null;column:relevance" json:"relevance"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CardTheme) TableName() string {
	return "card_theme"
}

// DrawnCard is a catalog card plus per-draw state. Created fresh each draw;
// never written back to the catalog.
type DrawnCard struct {
	Card
	IsReversed bool            `json:"is_reversed"`
	Position   *SpreadPosition `json:"position,omitempty"`
}
