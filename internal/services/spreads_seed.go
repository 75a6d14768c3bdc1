package services

import (
	"gorm.io/datatypes"

	"github.com/arcana-labs/arcana-backend/internal/types"
)

// PredefinedSpreads returns the built-in public spreads seeded on first boot.
func PredefinedSpreads() []*types.Spread {
	return []*types.Spread{
		{
			Name:        "Past, Present, Future",
			Description: "A classic three-card spread exploring temporal aspects of your question",
			IsPublic:    true,
			Positions: datatypes.NewJSONSlice([]types.SpreadPosition{
				{Name: "Past", Description: "Foundation and history that led to the current situation", ThemeMultiplier: 0.8, Index: 1},
				{Name: "Present", Description: "Current energies and immediate influences", ThemeMultiplier: 1.2, Index: 2},
				{Name: "Future", Description: "Potential outcome and emerging energies", ThemeMultiplier: 1.0, Index: 3},
			}),
		},
		{
			Name:        "Celtic Cross",
			Description: "A comprehensive ten-card spread for deep insight",
			IsPublic:    true,
			Positions: datatypes.NewJSONSlice([]types.SpreadPosition{
				{Name: "Present", Description: "The current situation", ThemeMultiplier: 1.2, Index: 1},
				{Name: "Challenge", Description: "What crosses you", ThemeMultiplier: 1.0, Index: 2},
				{Name: "Foundation", Description: "The basis of the situation", ThemeMultiplier: 0.8, Index: 3},
				{Name: "Past", Description: "Recent past influences", ThemeMultiplier: 0.7, Index: 4},
				{Name: "Crown", Description: "Your thoughts and aspirations", ThemeMultiplier: 1.1, Index: 5},
				{Name: "Future", Description: "Near future influences", ThemeMultiplier: 1.0, Index: 6},
				{Name: "Self", Description: "How you see yourself", ThemeMultiplier: 1.2, Index: 7},
				{Name: "Environment", Description: "How others see you", ThemeMultiplier: 0.9, Index: 8},
				{Name: "Hopes/Fears", Description: "Your hopes and fears", ThemeMultiplier: 1.1, Index: 9},
				{Name: "Outcome", Description: "The final outcome", ThemeMultiplier: 1.3, Index: 10},
			}),
		},
	}
}
