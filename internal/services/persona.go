package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/platform/envutil"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/repos"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

// One bound convention everywhere: weights live in [0.1, 1.0], initialized
// at 0.5. Enforced on every write, never only on read.
const (
	MinWeight     = 0.1
	MaxWeight     = 1.0
	DefaultWeight = 0.5
)

// PersonaTheme is one theme's weight in a subject's persona.
type PersonaTheme struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Weight float64   `json:"weight"`
}

// Persona is a subject's weight vector over all known themes.
type Persona struct {
	SubjectID   string         `json:"subject_id"`
	IsAnonymous bool           `json:"is_anonymous"`
	Themes      []PersonaTheme `json:"themes"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Weights maps theme id to weight for the selector.
func (p *Persona) Weights() map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(p.Themes))
	for _, t := range p.Themes {
		out[t.ID] = t.Weight
	}
	return out
}

// SubjectKey partitions anonymous sessions away from users sharing an id
// space by accident.
func SubjectKey(subjectID string, isAnonymous bool) string {
	if isAnonymous {
		return "anon:" + subjectID
	}
	return subjectID
}

type PersonaService interface {
	// GetPersona returns the decayed weight vector, initializing every
	// catalog theme at DefaultWeight for a subject with no rows.
	GetPersona(ctx context.Context, subjectID string, isAnonymous bool) (*Persona, error)

	// UpdateThemeWeight applies a bounded delta and returns the new weight.
	UpdateThemeWeight(ctx context.Context, subjectID string, isAnonymous bool, themeID uuid.UUID, delta float64) (float64, error)

	// FeedbackDelta is the configured magnitude for one vote.
	FeedbackDelta() float64

	// DecayAll sweeps every subject, applying the same lazy-decay formula.
	// Idempotent: zero elapsed days is a no-op.
	DecayAll(ctx context.Context) (int, error)
}

type personaService struct {
	db         *gorm.DB
	log        *logger.Logger
	met        metrics.Collector
	userThemes repos.UserThemeRepo
	catalog    CatalogService
	locks      *keyedMutex
	decayRate  float64
	delta      float64
	now        func() time.Time
}

func NewPersonaService(db *gorm.DB, baseLog *logger.Logger, met metrics.Collector, userThemes repos.UserThemeRepo, catalog CatalogService) PersonaService {
	return &personaService{
		db:         db,
		log:        baseLog.With("service", "PersonaService"),
		met:        met,
		userThemes: userThemes,
		catalog:    catalog,
		locks:      newKeyedMutex(),
		decayRate:  envutil.Float("PERSONA_DECAY_RATE", 0.95),
		delta:      envutil.Float("PERSONA_FEEDBACK_DELTA", 0.1),
		now:        time.Now,
	}
}

func (s *personaService) FeedbackDelta() float64 {
	return s.delta
}

func clampWeight(w float64) float64 {
	return math.Min(MaxWeight, math.Max(MinWeight, w))
}

// decayedWeight applies rate^days with the floor bound. Zero days returns
// the weight unchanged.
func decayedWeight(weight float64, rate float64, days int) float64 {
	if days <= 0 || weight <= MinWeight {
		return math.Max(MinWeight, weight)
	}
	return math.Max(MinWeight, weight*math.Pow(rate, float64(days)))
}

func daysElapsed(since, now time.Time) int {
	if now.Before(since) {
		return 0
	}
	return int(now.Sub(since).Hours() / 24)
}

func (s *personaService) GetPersona(ctx context.Context, subjectID string, isAnonymous bool) (*Persona, error) {
	key := SubjectKey(subjectID, isAnonymous)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	themes, err := s.catalog.AllThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("get persona: %w", err)
	}
	nameByID := make(map[uuid.UUID]string, len(themes))
	for _, t := range themes {
		nameByID[t.ID] = t.Name
	}

	rows, err := s.userThemes.ListBySubject(ctx, nil, key)
	if err != nil {
		return nil, fmt.Errorf("get persona: %w", err)
	}
	if len(rows) == 0 {
		return s.initializePersona(ctx, subjectID, isAnonymous, themes)
	}

	now := s.now().UTC()
	persona := &Persona{
		SubjectID:   subjectID,
		IsAnonymous: isAnonymous,
		LastUpdated: now,
	}
	for _, row := range rows {
		days := daysElapsed(row.UpdatedAt, now)
		weight := row.Weight
		if days > 0 {
			weight = decayedWeight(row.Weight, s.decayRate, days)
			if err := s.userThemes.SetWeight(ctx, nil, key, row.ThemeID, weight, now); err != nil {
				return nil, fmt.Errorf("write decayed weight: %w", err)
			}
			s.met.DecayedRows(1)
		}
		persona.Themes = append(persona.Themes, PersonaTheme{
			ID:     row.ThemeID,
			Name:   nameByID[row.ThemeID],
			Weight: weight,
		})
	}
	return persona, nil
}

func (s *personaService) initializePersona(ctx context.Context, subjectID string, isAnonymous bool, themes []*types.Theme) (*Persona, error) {
	key := SubjectKey(subjectID, isAnonymous)
	now := s.now().UTC()

	rows := make([]*types.UserTheme, 0, len(themes))
	persona := &Persona{
		SubjectID:   subjectID,
		IsAnonymous: isAnonymous,
		LastUpdated: now,
	}
	for _, t := range themes {
		rows = append(rows, &types.UserTheme{
			SubjectID:   key,
			ThemeID:     t.ID,
			IsAnonymous: isAnonymous,
			Weight:      DefaultWeight,
			UpdatedAt:   now,
		})
		persona.Themes = append(persona.Themes, PersonaTheme{
			ID:     t.ID,
			Name:   t.Name,
			Weight: DefaultWeight,
		})
	}
	if err := s.userThemes.UpsertMany(ctx, nil, rows); err != nil {
		return nil, fmt.Errorf("initialize persona: %w", err)
	}
	s.log.Debug("initialized persona", "subject_id", subjectID, "themes", len(rows))
	return persona, nil
}

func (s *personaService) UpdateThemeWeight(ctx context.Context, subjectID string, isAnonymous bool, themeID uuid.UUID, delta float64) (float64, error) {
	key := SubjectKey(subjectID, isAnonymous)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.now().UTC()
	row, err := s.userThemes.Get(ctx, nil, key, themeID)
	if err != nil {
		return 0, fmt.Errorf("update theme weight: %w", err)
	}

	old := DefaultWeight
	if row != nil {
		old = row.Weight
	}
	newWeight := clampWeight(old + delta)

	if err := s.userThemes.UpsertMany(ctx, nil, []*types.UserTheme{{
		SubjectID:   key,
		ThemeID:     themeID,
		IsAnonymous: isAnonymous,
		Weight:      newWeight,
		UpdatedAt:   now,
	}}); err != nil {
		return 0, fmt.Errorf("update theme weight: %w", err)
	}

	direction := "up"
	if delta < 0 {
		direction = "down"
	}
	s.met.FeedbackEvent(direction)
	return newWeight, nil
}

func (s *personaService) DecayAll(ctx context.Context) (int, error) {
	subjects, err := s.userThemes.DistinctSubjects(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("decay sweep: %w", err)
	}

	var decayed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	counts := make(chan int, len(subjects))

	for _, subject := range subjects {
		g.Go(func() error {
			n, err := s.decaySubject(gctx, subject)
			if err != nil {
				return err
			}
			counts <- n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(decayed), err
	}
	close(counts)
	for n := range counts {
		decayed += int64(n)
	}
	s.met.DecayedRows(int(decayed))
	return int(decayed), nil
}

func (s *personaService) decaySubject(ctx context.Context, subjectKey string) (int, error) {
	s.locks.Lock(subjectKey)
	defer s.locks.Unlock(subjectKey)

	rows, err := s.userThemes.ListBySubject(ctx, nil, subjectKey)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	decayed := 0
	for _, row := range rows {
		days := daysElapsed(row.UpdatedAt, now)
		if days <= 0 {
			continue
		}
		weight := decayedWeight(row.Weight, s.decayRate, days)
		if err := s.userThemes.SetWeight(ctx, nil, subjectKey, row.ThemeID, weight, now); err != nil {
			return decayed, err
		}
		decayed++
	}
	return decayed, nil
}
