package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/platform/envutil"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/platform/openai"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

var (
	ErrNoCardsAvailable  = fmt.Errorf("no cards available")
	ErrInsufficientCards = fmt.Errorf("not enough cards for the requested draw")
)

// OverdrawPolicy decides what happens when a draw asks for more cards than
// the catalog holds: cap silently, or fail with ErrInsufficientCards.
type OverdrawPolicy string

const (
	OverdrawCap  OverdrawPolicy = "cap"
	OverdrawFail OverdrawPolicy = "fail"
)

// minDrawScore keeps cards with no theme signal drawable under a
// weighted persona.
const minDrawScore = 0.05

// SelectionParams describe one draw. Positions, when present, drive one
// selection round per position with that position's multiplier; Count is
// used only for position-less draws.
type SelectionParams struct {
	Persona   *Persona
	Count     int
	Query     string
	Positions []types.SpreadPosition
}

type CardSelector interface {
	SelectCards(ctx context.Context, params SelectionParams) ([]types.DrawnCard, error)
}

type cardSelector struct {
	log     *logger.Logger
	met     metrics.Collector
	catalog CatalogService
	ai      openai.Client
	policy  OverdrawPolicy
	rng     *rand.Rand
}

func NewCardSelector(baseLog *logger.Logger, met metrics.Collector, catalog CatalogService, ai openai.Client) CardSelector {
	policy := OverdrawPolicy(strings.ToLower(envutil.String("SELECTOR_OVERDRAW_POLICY", string(OverdrawCap))))
	if policy != OverdrawCap && policy != OverdrawFail {
		policy = OverdrawCap
	}
	return &cardSelector{
		log:     baseLog.With("service", "CardSelector"),
		met:     met,
		catalog: catalog,
		ai:      ai,
		policy:  policy,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// candidate carries a card through scoring. score is the blended signal
// before jitter.
type candidate struct {
	card  *types.Card
	score float64
}

func (s *cardSelector) SelectCards(ctx context.Context, params SelectionParams) ([]types.DrawnCard, error) {
	cards, err := s.catalog.AllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	if len(cards) == 0 {
		return nil, ErrNoCardsAvailable
	}

	slots := params.Count
	if len(params.Positions) > 0 {
		slots = len(params.Positions)
	}
	if slots <= 0 {
		return nil, fmt.Errorf("select cards: non-positive count")
	}
	if slots > len(cards) {
		if s.policy == OverdrawFail {
			return nil, ErrInsufficientCards
		}
		slots = len(cards)
	}

	baseScores, weighted, err := s.baseScores(ctx, params.Persona, cards)
	if err != nil {
		return nil, err
	}

	if weighted && strings.TrimSpace(params.Query) != "" {
		if err := s.addSemanticScores(ctx, params.Query, cards, baseScores); err != nil {
			// Semantic ranking is an enrichment; a failed embedding call
			// degrades to theme-only scoring.
			s.log.Warn("semantic ranking unavailable", "error", err)
		}
	}

	drawn := make([]types.DrawnCard, 0, slots)
	used := make(map[uuid.UUID]bool, slots)

	pick := func(multiplier float64) *types.Card {
		ranked := make([]candidate, 0, len(cards))
		for _, c := range cards {
			if used[c.ID] {
				continue
			}
			score := 1.0
			if weighted {
				score = baseScores[c.ID] * multiplier
				if score < minDrawScore {
					score = minDrawScore
				}
			}
			// Jitter keeps repeated draws non-deterministic for ties.
			ranked = append(ranked, candidate{card: c, score: score * s.rng.Float64()})
		}
		sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
		return ranked[0].card
	}

	if len(params.Positions) > 0 {
		positions := append([]types.SpreadPosition(nil), params.Positions...)
		sort.Slice(positions, func(i, j int) bool { return positions[i].Index < positions[j].Index })
		for i := range positions {
			if len(drawn) == slots {
				break
			}
			card := pick(positions[i].ThemeMultiplier)
			used[card.ID] = true
			pos := positions[i]
			drawn = append(drawn, types.DrawnCard{
				Card:       *card,
				IsReversed: s.rng.Float64() < 0.5,
				Position:   &pos,
			})
		}
	} else {
		for len(drawn) < slots {
			card := pick(1.0)
			used[card.ID] = true
			drawn = append(drawn, types.DrawnCard{
				Card:       *card,
				IsReversed: s.rng.Float64() < 0.5,
			})
		}
	}

	return drawn, nil
}

// baseScores sums relevance(card, theme) * weight(theme) per card. The
// second return is false when there is no usable signal (empty persona or
// no relevance rows), which means a uniform random draw.
func (s *cardSelector) baseScores(ctx context.Context, persona *Persona, cards []*types.Card) (map[uuid.UUID]float64, bool, error) {
	scores := make(map[uuid.UUID]float64, len(cards))
	if persona == nil || len(persona.Themes) == 0 {
		return scores, false, nil
	}

	relevance, err := s.catalog.Relevance(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("select cards: %w", err)
	}
	if len(relevance) == 0 {
		return scores, false, nil
	}

	weights := persona.Weights()
	for _, rel := range relevance {
		if w, ok := weights[rel.ThemeID]; ok {
			scores[rel.CardID] += rel.Relevance * w
		}
	}
	return scores, true, nil
}

// addSemanticScores folds in 1 - rank/total over cosine similarity between
// the query embedding and the precomputed card description embeddings.
func (s *cardSelector) addSemanticScores(ctx context.Context, query string, cards []*types.Card, scores map[uuid.UUID]float64) error {
	start := time.Now()
	vectors, err := s.ai.Embed(ctx, []string{query})
	s.met.GenerationLatency("embed", time.Since(start))
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return fmt.Errorf("empty embedding result")
	}
	queryVec := vectors[0]

	type match struct {
		id  uuid.UUID
		sim float64
	}
	matches := make([]match, 0, len(cards))
	for _, c := range cards {
		if len(c.Embedding) == 0 {
			continue
		}
		matches = append(matches, match{id: c.ID, sim: cosine(queryVec, c.Embedding)})
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].sim > matches[j].sim })
	total := float64(len(matches))
	for rank, m := range matches {
		scores[m.id] += 1 - float64(rank)/total
	}
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
