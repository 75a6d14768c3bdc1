package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

func newTestSelector(cat *fakeCatalog, policy OverdrawPolicy, seed int64) *cardSelector {
	return &cardSelector{
		log:     logger.NewNop(),
		met:     metrics.Noop(),
		catalog: cat,
		ai:      &fakeAI{},
		policy:  policy,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func TestSelectCardsNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	cat := catalogFixture(0, 12)
	sel := newTestSelector(cat, OverdrawCap, 1)

	for trial := 0; trial < 50; trial++ {
		drawn, err := sel.SelectCards(ctx, SelectionParams{Count: 10})
		if err != nil {
			t.Fatalf("SelectCards: %v", err)
		}
		if len(drawn) != 10 {
			t.Fatalf("drew %d cards, want 10", len(drawn))
		}
		seen := make(map[uuid.UUID]bool, len(drawn))
		for _, d := range drawn {
			if seen[d.ID] {
				t.Fatalf("card %s drawn twice in trial %d", d.Name, trial)
			}
			seen[d.ID] = true
		}
	}
}

func TestReversalFrequencyIsBalanced(t *testing.T) {
	ctx := context.Background()
	cat := catalogFixture(0, 5)
	sel := newTestSelector(cat, OverdrawCap, 7)

	const trials = 2000
	reversed := 0
	for i := 0; i < trials; i++ {
		drawn, err := sel.SelectCards(ctx, SelectionParams{Count: 1})
		if err != nil {
			t.Fatalf("SelectCards: %v", err)
		}
		if drawn[0].IsReversed {
			reversed++
		}
	}

	ratio := float64(reversed) / trials
	if math.Abs(ratio-0.5) > 0.05 {
		t.Fatalf("reversal ratio %v, want about 0.5", ratio)
	}
}

func TestWeightedDrawFavorsStrongThemes(t *testing.T) {
	ctx := context.Background()
	cat := catalogFixture(2, 2)
	strongTheme := cat.themes[0]
	weakTheme := cat.themes[1]
	favored := cat.cards[0]
	other := cat.cards[1]
	cat.relevance = []*types.CardTheme{
		{CardID: favored.ID, ThemeID: strongTheme.ID, Relevance: 1.0},
		{CardID: other.ID, ThemeID: weakTheme.ID, Relevance: 1.0},
	}

	persona := &Persona{
		SubjectID: "user-1",
		Themes: []PersonaTheme{
			{ID: strongTheme.ID, Weight: MaxWeight},
			{ID: weakTheme.ID, Weight: MinWeight},
		},
	}

	sel := newTestSelector(cat, OverdrawCap, 11)
	const trials = 500
	favoredWins := 0
	for i := 0; i < trials; i++ {
		drawn, err := sel.SelectCards(ctx, SelectionParams{Persona: persona, Count: 1})
		if err != nil {
			t.Fatalf("SelectCards: %v", err)
		}
		if drawn[0].ID == favored.ID {
			favoredWins++
		}
	}

	// Jitter keeps the weak card drawable, but the strong theme should
	// dominate clearly.
	if favoredWins < trials*3/5 {
		t.Fatalf("favored card won only %d of %d draws", favoredWins, trials)
	}
}

func TestColdPersonaDrawsUniformly(t *testing.T) {
	ctx := context.Background()
	cat := catalogFixture(0, 4)
	sel := newTestSelector(cat, OverdrawCap, 3)

	counts := make(map[uuid.UUID]int)
	const trials = 4000
	for i := 0; i < trials; i++ {
		drawn, err := sel.SelectCards(ctx, SelectionParams{Count: 1})
		if err != nil {
			t.Fatalf("SelectCards: %v", err)
		}
		counts[drawn[0].ID]++
	}

	// Each of the 4 cards should land near trials/4.
	for id, n := range counts {
		ratio := float64(n) / trials
		if math.Abs(ratio-0.25) > 0.05 {
			t.Fatalf("card %s drawn with ratio %v, want about 0.25", id, ratio)
		}
	}
}

func TestPositionsDriveTheDrawOrder(t *testing.T) {
	ctx := context.Background()
	cat := catalogFixture(0, 5)
	sel := newTestSelector(cat, OverdrawCap, 5)

	positions := []types.SpreadPosition{
		{Name: "Future", ThemeMultiplier: 1.2, Index: 3},
		{Name: "Past", ThemeMultiplier: 1.0, Index: 1},
		{Name: "Present", ThemeMultiplier: 1.1, Index: 2},
	}

	drawn, err := sel.SelectCards(ctx, SelectionParams{Positions: positions})
	if err != nil {
		t.Fatalf("SelectCards: %v", err)
	}
	if len(drawn) != 3 {
		t.Fatalf("drew %d cards for 3 positions", len(drawn))
	}
	wantOrder := []string{"Past", "Present", "Future"}
	for i, d := range drawn {
		if d.Position == nil {
			t.Fatalf("card %d has no position", i)
		}
		if d.Position.Name != wantOrder[i] {
			t.Fatalf("position %d = %s, want %s", i, d.Position.Name, wantOrder[i])
		}
	}
}

func TestOverdrawPolicies(t *testing.T) {
	ctx := context.Background()
	cat := catalogFixture(0, 3)

	capped := newTestSelector(cat, OverdrawCap, 1)
	drawn, err := capped.SelectCards(ctx, SelectionParams{Count: 10})
	if err != nil {
		t.Fatalf("cap policy errored: %v", err)
	}
	if len(drawn) != 3 {
		t.Fatalf("cap policy drew %d, want 3", len(drawn))
	}

	strict := newTestSelector(cat, OverdrawFail, 1)
	if _, err := strict.SelectCards(ctx, SelectionParams{Count: 10}); !errors.Is(err, ErrInsufficientCards) {
		t.Fatalf("fail policy returned %v, want ErrInsufficientCards", err)
	}
}

func TestEmptyCatalogFailsTheDraw(t *testing.T) {
	ctx := context.Background()
	sel := newTestSelector(&fakeCatalog{}, OverdrawCap, 1)
	if _, err := sel.SelectCards(ctx, SelectionParams{Count: 1}); !errors.Is(err, ErrNoCardsAvailable) {
		t.Fatalf("got %v, want ErrNoCardsAvailable", err)
	}
}
