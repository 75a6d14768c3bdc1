package cache

import (
	"context"
	"time"
)

// Namespace scopes keys and carries the TTL policy for everything stored
// under it. Values are opaque blobs; serialization belongs to the caller.
type Namespace string

const (
	NamespaceSession        Namespace = "arcana:state"
	NamespaceCards          Namespace = "arcana:cards"
	NamespaceSpreads        Namespace = "arcana:spreads"
	NamespaceRelevance      Namespace = "arcana:relevance"
	NamespaceThemes         Namespace = "arcana:themes"
	NamespaceRecentReadings Namespace = "arcana:recent"
	NamespaceUserPatterns   Namespace = "arcana:patterns"
)

var ttlPolicy = map[Namespace]time.Duration{
	NamespaceSession:        time.Hour,
	NamespaceCards:          24 * time.Hour,
	NamespaceSpreads:        24 * time.Hour,
	NamespaceRelevance:      24 * time.Hour,
	NamespaceThemes:         24 * time.Hour,
	NamespaceRecentReadings: 7 * 24 * time.Hour,
	NamespaceUserPatterns:   30 * 24 * time.Hour,
}

// TTL returns the namespace's retention policy. Unknown namespaces get one
// hour so nothing is ever stored unbounded.
func (n Namespace) TTL() time.Duration {
	if ttl, ok := ttlPolicy[n]; ok {
		return ttl
	}
	return time.Hour
}

func (n Namespace) Key(id string) string {
	return string(n) + ":" + id
}

// Batch queues writes and executes them together. Execution is not atomic on
// any backend; callers must not depend on cross-key atomicity.
type Batch interface {
	Set(ns Namespace, key string, value []byte, ttl time.Duration)
	Delete(ns Namespace, key string)
	Exec(ctx context.Context) error
}

// Cache is the minimal capability surface every store in this system persists
// through. The second Get return reports presence, distinguishing a missing
// key from an empty value.
type Cache interface {
	Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, ns Namespace, key string) error
	Batch() Batch
}

// sequentialBatch adapts backends without native pipelining: operations run
// one by one on Exec with the same external semantics as a pipelined batch.
type sequentialBatch struct {
	cache Cache
	ops   []func(ctx context.Context) error
}

// NewSequentialBatch returns the fallback Batch for backends lacking native
// batching. Selected once at construction time, not per call.
func NewSequentialBatch(c Cache) Batch {
	return &sequentialBatch{cache: c}
}

func (b *sequentialBatch) Set(ns Namespace, key string, value []byte, ttl time.Duration) {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.ops = append(b.ops, func(ctx context.Context) error {
		return b.cache.Set(ctx, ns, key, cp, ttl)
	})
}

func (b *sequentialBatch) Delete(ns Namespace, key string) {
	b.ops = append(b.ops, func(ctx context.Context) error {
		return b.cache.Delete(ctx, ns, key)
	})
}

func (b *sequentialBatch) Exec(ctx context.Context) error {
	for _, op := range b.ops {
		if err := op(ctx); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
