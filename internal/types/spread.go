package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SpreadPosition modifies selection weight for the card drawn into it.
// Index is 1-based and orders the positions.
type SpreadPosition struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	ThemeMultiplier float64 `json:"theme_multiplier"`
	Index           int     `json:"index"`
}

type Spread struct {
	ID          uuid.UUID                           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string                              `gorm:"not null;column:name" json:"name"`
	Description string                              `gorm:"column:description" json:"description"`
	Positions   datatypes.JSONSlice[SpreadPosition] `gorm:"not null;column:positions" json:"positions"`
	IsPublic    bool                                `gorm:"not null;default:true;column:is_public" json:"is_public"`
	OwnerID     *uuid.UUID                          `gorm:"type:uuid;column:owner_id" json:"owner_id,omitempty"`
	CreatedAt   time.Time                           `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time                           `gorm:"not null;default:now()" json:"updated_at"`
}

func (Spread) TableName() string {
	return "spread"
}
