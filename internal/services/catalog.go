package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/arcana-labs/arcana-backend/internal/cache"
	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/repos"
	"github.com/arcana-labs/arcana-backend/internal/types"
)

var ErrSpreadNotFound = fmt.Errorf("spread not found")

const catalogAllKey = "all"

// CatalogService serves the read-only card/theme/spread catalog cache-aside:
// check the cache, on miss load from Postgres and repopulate per-item keys
// plus the "all" key in one batched write. Population is idempotent, so two
// cold-start requests racing each other is redundant but safe.
type CatalogService interface {
	AllCards(ctx context.Context) ([]*types.Card, error)
	AllThemes(ctx context.Context) ([]*types.Theme, error)
	Relevance(ctx context.Context) ([]*types.CardTheme, error)
	AllSpreads(ctx context.Context) ([]*types.Spread, error)
	SpreadsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*types.Spread, error)
	SpreadByID(ctx context.Context, spreadID uuid.UUID) (*types.Spread, error)
	SeedDefaults(ctx context.Context) error
}

type catalogService struct {
	log     *logger.Logger
	cache   cache.Cache
	met     metrics.Collector
	cards   repos.CardRepo
	themes  repos.ThemeRepo
	spreads repos.SpreadRepo
}

func NewCatalogService(baseLog *logger.Logger, c cache.Cache, met metrics.Collector, cards repos.CardRepo, themes repos.ThemeRepo, spreads repos.SpreadRepo) CatalogService {
	return &catalogService{
		log:     baseLog.With("service", "CatalogService"),
		cache:   c,
		met:     met,
		cards:   cards,
		themes:  themes,
		spreads: spreads,
	}
}

func (s *catalogService) AllCards(ctx context.Context) ([]*types.Card, error) {
	var cached []*types.Card
	if ok, err := s.getJSON(ctx, cache.NamespaceCards, catalogAllKey, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	loaded, err := s.cards.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	if err := populateCatalog(ctx, s.cache, cache.NamespaceCards, loaded, func(c *types.Card) string { return c.ID.String() }); err != nil {
		s.log.Warn("card cache population failed", "error", err)
	}
	return loaded, nil
}

func (s *catalogService) AllThemes(ctx context.Context) ([]*types.Theme, error) {
	var cached []*types.Theme
	if ok, err := s.getJSON(ctx, cache.NamespaceThemes, catalogAllKey, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	loaded, err := s.themes.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	if err := populateCatalog(ctx, s.cache, cache.NamespaceThemes, loaded, func(t *types.Theme) string { return t.ID.String() }); err != nil {
		s.log.Warn("theme cache population failed", "error", err)
	}
	return loaded, nil
}

func (s *catalogService) Relevance(ctx context.Context) ([]*types.CardTheme, error) {
	var cached []*types.CardTheme
	if ok, err := s.getJSON(ctx, cache.NamespaceRelevance, catalogAllKey, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	loaded, err := s.cards.ListRelevance(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load relevance: %w", err)
	}
	// Relevance rows are only ever read as a full set; no per-item keys.
	raw, err := json.Marshal(loaded)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.NamespaceRelevance, catalogAllKey, raw, cache.NamespaceRelevance.TTL()); err != nil {
		s.log.Warn("relevance cache population failed", "error", err)
	}
	return loaded, nil
}

func (s *catalogService) AllSpreads(ctx context.Context) ([]*types.Spread, error) {
	var cached []*types.Spread
	if ok, err := s.getJSON(ctx, cache.NamespaceSpreads, catalogAllKey, &cached); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	loaded, err := s.spreads.ListPublic(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load spreads: %w", err)
	}
	if err := populateCatalog(ctx, s.cache, cache.NamespaceSpreads, loaded, func(sp *types.Spread) string { return sp.ID.String() }); err != nil {
		s.log.Warn("spread cache population failed", "error", err)
	}
	return loaded, nil
}

// SpreadsByOwner reads straight from the repo. Owner lists are small and
// change with every save, so caching them buys nothing.
func (s *catalogService) SpreadsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*types.Spread, error) {
	loaded, err := s.spreads.ListByOwner(ctx, nil, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load owner spreads: %w", err)
	}
	return loaded, nil
}

func (s *catalogService) SpreadByID(ctx context.Context, spreadID uuid.UUID) (*types.Spread, error) {
	var cached types.Spread
	if ok, err := s.getJSON(ctx, cache.NamespaceSpreads, spreadID.String(), &cached); err != nil {
		return nil, err
	} else if ok {
		return &cached, nil
	}

	loaded, err := s.spreads.GetByID(ctx, nil, spreadID)
	if err != nil {
		return nil, fmt.Errorf("load spread: %w", err)
	}
	if loaded == nil {
		return nil, ErrSpreadNotFound
	}
	raw, err := json.Marshal(loaded)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cache.NamespaceSpreads, spreadID.String(), raw, cache.NamespaceSpreads.TTL()); err != nil {
		s.log.Warn("spread cache population failed", "error", err, "spread_id", spreadID)
	}
	return loaded, nil
}

// SeedDefaults inserts the predefined public spreads on an empty table.
func (s *catalogService) SeedDefaults(ctx context.Context) error {
	count, err := s.spreads.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count spreads: %w", err)
	}
	if count > 0 {
		return nil
	}
	s.log.Info("Seeding predefined spreads")
	return s.spreads.CreateMany(ctx, nil, PredefinedSpreads())
}

func (s *catalogService) getJSON(ctx context.Context, ns cache.Namespace, key string, out any) (bool, error) {
	raw, found, err := s.cache.Get(ctx, ns, key)
	if err != nil {
		return false, err
	}
	if !found {
		s.met.CacheMiss(string(ns))
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A corrupt entry behaves like a miss and gets overwritten.
		s.log.Warn("corrupt cache entry", "namespace", ns, "key", key, "error", err)
		s.met.CacheMiss(string(ns))
		return false, nil
	}
	s.met.CacheHit(string(ns))
	return true, nil
}

// populateCatalog writes every item under its own key plus the "all" key in
// a single batch.
func populateCatalog[T any](ctx context.Context, c cache.Cache, ns cache.Namespace, items []T, keyOf func(T) string) error {
	batch := c.Batch()
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		batch.Set(ns, keyOf(item), raw, ns.TTL())
	}
	all, err := json.Marshal(items)
	if err != nil {
		return err
	}
	batch.Set(ns, catalogAllKey, all, ns.TTL())
	return batch.Exec(ctx)
}
