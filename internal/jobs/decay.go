package jobs

import (
	"context"
	"time"

	"github.com/arcana-labs/arcana-backend/internal/platform/envutil"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/services"
)

// DecayWorker sweeps every persona on an interval so weights drift back
// toward neutral even for subjects who never come back. Reads already decay
// lazily; the sweep keeps stored rows from going stale for reporting.
type DecayWorker struct {
	log      *logger.Logger
	persona  services.PersonaService
	interval time.Duration
}

func NewDecayWorker(baseLog *logger.Logger, persona services.PersonaService) *DecayWorker {
	return &DecayWorker{
		log:      baseLog.With("component", "DecayWorker"),
		persona:  persona,
		interval: envutil.Duration("PERSONA_DECAY_INTERVAL", 6*time.Hour),
	}
}

func (w *DecayWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *DecayWorker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("decay sweep panic", "panic", r)
		}
	}()

	start := time.Now()
	rows, err := w.persona.DecayAll(ctx)
	if err != nil {
		w.log.Warn("decay sweep failed", "error", err)
		return
	}
	w.log.Info("decay sweep finished", "rows", rows, "elapsed", time.Since(start).String())
}
