package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/cache"
	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

type fakeCardRepo struct {
	cards     []*types.Card
	relevance []*types.CardTheme
	listCalls atomic.Int64
}

func (f *fakeCardRepo) ListAll(context.Context, *gorm.DB) ([]*types.Card, error) {
	f.listCalls.Add(1)
	return f.cards, nil
}

func (f *fakeCardRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]*types.Card, error) {
	var out []*types.Card
	for _, c := range f.cards {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (f *fakeCardRepo) ListRelevance(context.Context, *gorm.DB) ([]*types.CardTheme, error) {
	return f.relevance, nil
}

func (f *fakeCardRepo) CreateMany(_ context.Context, _ *gorm.DB, cards []*types.Card) error {
	f.cards = append(f.cards, cards...)
	return nil
}

func (f *fakeCardRepo) UpdateEmbedding(context.Context, *gorm.DB, uuid.UUID, []float32) error {
	return nil
}

type fakeThemeRepo struct {
	themes    []*types.Theme
	listCalls atomic.Int64
}

func (f *fakeThemeRepo) ListAll(context.Context, *gorm.DB) ([]*types.Theme, error) {
	f.listCalls.Add(1)
	return f.themes, nil
}

func (f *fakeThemeRepo) CreateMany(_ context.Context, _ *gorm.DB, themes []*types.Theme) error {
	f.themes = append(f.themes, themes...)
	return nil
}

type fakeSpreadRepo struct {
	spreads []*types.Spread
}

func (f *fakeSpreadRepo) ListPublic(context.Context, *gorm.DB) ([]*types.Spread, error) {
	return f.spreads, nil
}

func (f *fakeSpreadRepo) ListByOwner(_ context.Context, _ *gorm.DB, ownerID uuid.UUID) ([]*types.Spread, error) {
	var out []*types.Spread
	for _, s := range f.spreads {
		if s.OwnerID != nil && *s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSpreadRepo) GetByID(_ context.Context, _ *gorm.DB, spreadID uuid.UUID) (*types.Spread, error) {
	for _, s := range f.spreads {
		if s.ID == spreadID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSpreadRepo) Count(context.Context, *gorm.DB) (int64, error) {
	return int64(len(f.spreads)), nil
}

func (f *fakeSpreadRepo) CreateMany(_ context.Context, _ *gorm.DB, spreads []*types.Spread) error {
	for _, s := range spreads {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		f.spreads = append(f.spreads, s)
	}
	return nil
}

func newTestCatalog(cards *fakeCardRepo, themes *fakeThemeRepo, spreads *fakeSpreadRepo) (CatalogService, *cache.Memory) {
	store := cache.NewMemory()
	svc := NewCatalogService(logger.NewNop(), store, metrics.Noop(), cards, themes, spreads)
	return svc, store
}

func TestCatalogServesSecondReadFromCache(t *testing.T) {
	ctx := context.Background()
	cards := &fakeCardRepo{cards: []*types.Card{
		{ID: uuid.New(), Name: "The Fool", Arcana: types.ArcanaMajor, Description: "beginnings"},
		{ID: uuid.New(), Name: "The Magician", Arcana: types.ArcanaMajor, Description: "will"},
	}}
	svc, _ := newTestCatalog(cards, &fakeThemeRepo{}, &fakeSpreadRepo{})

	first, err := svc.AllCards(ctx)
	if err != nil {
		t.Fatalf("AllCards: %v", err)
	}
	second, err := svc.AllCards(ctx)
	if err != nil {
		t.Fatalf("AllCards: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("got %d then %d cards", len(first), len(second))
	}
	if calls := cards.listCalls.Load(); calls != 1 {
		t.Fatalf("repo hit %d times, want 1", calls)
	}
}

func TestCorruptCacheEntryBehavesLikeAMiss(t *testing.T) {
	ctx := context.Background()
	themes := &fakeThemeRepo{themes: []*types.Theme{{ID: uuid.New(), Name: "love"}}}
	svc, store := newTestCatalog(&fakeCardRepo{}, themes, &fakeSpreadRepo{})

	if err := store.Set(ctx, cache.NamespaceThemes, catalogAllKey, []byte("{not json"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := svc.AllThemes(ctx)
	if err != nil {
		t.Fatalf("AllThemes: %v", err)
	}
	if len(got) != 1 || got[0].Name != "love" {
		t.Fatalf("corrupt entry not treated as miss: %+v", got)
	}
	if calls := themes.listCalls.Load(); calls != 1 {
		t.Fatalf("repo hit %d times, want 1", calls)
	}
}

func TestSpreadByIDMissReturnsSentinel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCatalog(&fakeCardRepo{}, &fakeThemeRepo{}, &fakeSpreadRepo{})

	if _, err := svc.SpreadByID(ctx, uuid.New()); !errors.Is(err, ErrSpreadNotFound) {
		t.Fatalf("got %v, want ErrSpreadNotFound", err)
	}
}

func TestSpreadByIDServesPerItemCacheKeys(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSpreadRepo{}
	svc, store := newTestCatalog(&fakeCardRepo{}, &fakeThemeRepo{}, repo)

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	// Listing populates per-item keys as a side effect.
	spreads, err := svc.AllSpreads(ctx)
	if err != nil {
		t.Fatalf("AllSpreads: %v", err)
	}
	if len(spreads) != 2 {
		t.Fatalf("seeded %d spreads, want 2", len(spreads))
	}

	id := spreads[0].ID
	if _, found, _ := store.Get(ctx, cache.NamespaceSpreads, id.String()); !found {
		t.Fatalf("per-item key not populated")
	}

	got, err := svc.SpreadByID(ctx, id)
	if err != nil {
		t.Fatalf("SpreadByID: %v", err)
	}
	if got.ID != id {
		t.Fatalf("wrong spread: %s", got.ID)
	}
}

func TestSpreadsByOwnerFiltersToTheOwner(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()
	repo := &fakeSpreadRepo{spreads: []*types.Spread{
		{ID: uuid.New(), Name: "Daily Pull", OwnerID: &owner},
		{ID: uuid.New(), Name: "Year Ahead", OwnerID: &other},
		{ID: uuid.New(), Name: "Public Cross", IsPublic: true},
	}}
	svc, _ := newTestCatalog(&fakeCardRepo{}, &fakeThemeRepo{}, repo)

	got, err := svc.SpreadsByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("SpreadsByOwner: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Daily Pull" {
		t.Fatalf("unexpected owner spreads: %+v", got)
	}

	empty, err := svc.SpreadsByOwner(ctx, uuid.New())
	if err != nil {
		t.Fatalf("SpreadsByOwner for stranger: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("stranger got %d spreads, want none", len(empty))
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSpreadRepo{}
	svc, _ := newTestCatalog(&fakeCardRepo{}, &fakeThemeRepo{}, repo)

	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if err := svc.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults second run: %v", err)
	}
	if len(repo.spreads) != 2 {
		t.Fatalf("repeated seeding produced %d spreads", len(repo.spreads))
	}

	names := map[string]bool{}
	for _, s := range repo.spreads {
		names[s.Name] = true
	}
	if !names["Past, Present, Future"] || !names["Celtic Cross"] {
		t.Fatalf("unexpected seeded spreads: %v", names)
	}
}
