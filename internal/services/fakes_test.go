package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/platform/openai"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

// fakeUserThemeRepo keeps persona rows in memory, keyed by subject then theme.
type fakeUserThemeRepo struct {
	mu   sync.Mutex
	rows map[string]map[uuid.UUID]*types.UserTheme
}

func newFakeUserThemeRepo() *fakeUserThemeRepo {
	return &fakeUserThemeRepo{rows: make(map[string]map[uuid.UUID]*types.UserTheme)}
}

func (f *fakeUserThemeRepo) ListBySubject(_ context.Context, _ *gorm.DB, subjectID string) ([]*types.UserTheme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.UserTheme
	for _, row := range f.rows[subjectID] {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUserThemeRepo) Get(_ context.Context, _ *gorm.DB, subjectID string, themeID uuid.UUID) (*types.UserTheme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[subjectID][themeID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeUserThemeRepo) UpsertMany(_ context.Context, _ *gorm.DB, rows []*types.UserTheme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		bySubject, ok := f.rows[row.SubjectID]
		if !ok {
			bySubject = make(map[uuid.UUID]*types.UserTheme)
			f.rows[row.SubjectID] = bySubject
		}
		cp := *row
		bySubject[row.ThemeID] = &cp
	}
	return nil
}

func (f *fakeUserThemeRepo) SetWeight(_ context.Context, _ *gorm.DB, subjectID string, themeID uuid.UUID, weight float64, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[subjectID][themeID]
	if !ok {
		return fmt.Errorf("no row for %s/%s", subjectID, themeID)
	}
	row.Weight = weight
	row.UpdatedAt = updatedAt
	return nil
}

func (f *fakeUserThemeRepo) DistinctSubjects(_ context.Context, _ *gorm.DB) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for subject := range f.rows {
		out = append(out, subject)
	}
	return out, nil
}

func (f *fakeUserThemeRepo) DeleteBySubject(_ context.Context, _ *gorm.DB, subjectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, subjectID)
	return nil
}

func (f *fakeUserThemeRepo) weight(subjectID string, themeID uuid.UUID) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[subjectID][themeID]
	if !ok {
		return 0, false
	}
	return row.Weight, true
}

func (f *fakeUserThemeRepo) touch(subjectID string, themeID uuid.UUID, weight float64, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bySubject, ok := f.rows[subjectID]
	if !ok {
		bySubject = make(map[uuid.UUID]*types.UserTheme)
		f.rows[subjectID] = bySubject
	}
	bySubject[themeID] = &types.UserTheme{
		SubjectID: subjectID,
		ThemeID:   themeID,
		Weight:    weight,
		UpdatedAt: updatedAt,
	}
}

// fakeCatalog serves fixed slices without touching cache or Postgres.
type fakeCatalog struct {
	cards     []*types.Card
	themes    []*types.Theme
	relevance []*types.CardTheme
	spreads   []*types.Spread
}

func (f *fakeCatalog) AllCards(context.Context) ([]*types.Card, error)       { return f.cards, nil }
func (f *fakeCatalog) AllThemes(context.Context) ([]*types.Theme, error)     { return f.themes, nil }
func (f *fakeCatalog) Relevance(context.Context) ([]*types.CardTheme, error) { return f.relevance, nil }
func (f *fakeCatalog) AllSpreads(context.Context) ([]*types.Spread, error)   { return f.spreads, nil }
func (f *fakeCatalog) SeedDefaults(context.Context) error                    { return nil }

func (f *fakeCatalog) SpreadsByOwner(_ context.Context, ownerID uuid.UUID) ([]*types.Spread, error) {
	var out []*types.Spread
	for _, sp := range f.spreads {
		if sp.OwnerID != nil && *sp.OwnerID == ownerID {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (f *fakeCatalog) SpreadByID(_ context.Context, spreadID uuid.UUID) (*types.Spread, error) {
	for _, s := range f.spreads {
		if s.ID == spreadID {
			return s, nil
		}
	}
	return nil, ErrSpreadNotFound
}

// fakeAI returns canned text so pipeline tests stay offline.
type fakeAI struct {
	mu          sync.Mutex
	completeErr error
	streamErr   error
	calls       []string
	deltas      []string
	streamed    [][]openai.Message
}

// lastStreamed returns the prompt of the most recent streaming call.
func (f *fakeAI) lastStreamed() []openai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streamed) == 0 {
		return nil
	}
	return f.streamed[len(f.streamed)-1]
}

func (f *fakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeAI) Complete(_ context.Context, messages []openai.Message, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return "", f.completeErr
	}
	f.calls = append(f.calls, "complete")
	return fmt.Sprintf("completion %d", len(f.calls)), nil
}

func (f *fakeAI) StreamCompletion(_ context.Context, messages []openai.Message, _ string, onDelta func(string)) (string, error) {
	f.mu.Lock()
	f.streamed = append(f.streamed, messages)
	deltas := f.deltas
	err := f.streamErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if len(deltas) == 0 {
		deltas = []string{"streamed ", "text"}
	}
	var full string
	for _, d := range deltas {
		full += d
		if onDelta != nil {
			onDelta(d)
		}
	}
	return full, nil
}

func catalogFixture(themeCount, cardCount int) *fakeCatalog {
	cat := &fakeCatalog{}
	for i := 0; i < themeCount; i++ {
		cat.themes = append(cat.themes, &types.Theme{
			ID:   uuid.New(),
			Name: fmt.Sprintf("theme-%d", i),
		})
	}
	for i := 0; i < cardCount; i++ {
		cat.cards = append(cat.cards, &types.Card{
			ID:          uuid.New(),
			Name:        fmt.Sprintf("card-%d", i),
			Arcana:      types.ArcanaMajor,
			Description: fmt.Sprintf("card %d description", i),
		})
	}
	return cat
}
