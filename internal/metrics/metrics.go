package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records what the engine does. The prometheus implementation backs
// the /metrics endpoint; Noop() is used in tests and when metrics are disabled.
type Collector interface {
	ReadingStarted()
	ReadingCompleted(duration time.Duration)
	ReadingFailed(code string)
	StepDuration(step string, duration time.Duration)
	CacheHit(namespace string)
	CacheMiss(namespace string)
	FeedbackEvent(direction string)
	DecayedRows(count int)
	GenerationLatency(operation string, duration time.Duration)
}

type promCollector struct {
	readingsStarted   prometheus.Counter
	readingsCompleted prometheus.Counter
	readingsFailed    *prometheus.CounterVec
	readingDuration   prometheus.Histogram
	stepDuration      *prometheus.HistogramVec
	cacheOps          *prometheus.CounterVec
	feedbackEvents    *prometheus.CounterVec
	decayedRows       prometheus.Counter
	generationLatency *prometheus.HistogramVec
	registry          *prometheus.Registry
}

func NewCollector() *promCollector {
	registry := prometheus.NewRegistry()

	c := &promCollector{
		readingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcana_readings_started_total",
			Help: "Reading pipeline runs started",
		}),
		readingsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcana_readings_completed_total",
			Help: "Reading pipeline runs reaching COMPLETED",
		}),
		readingsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcana_readings_failed_total",
			Help: "Reading pipeline runs reaching ERROR, by error code",
		}, []string{"code"}),
		readingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arcana_reading_duration_seconds",
			Help:    "Wall time of a full pipeline run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arcana_step_duration_seconds",
			Help:    "Duration of individual pipeline steps",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcana_cache_requests_total",
			Help: "Cache lookups by namespace and outcome",
		}, []string{"namespace", "outcome"}),
		feedbackEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arcana_feedback_events_total",
			Help: "Theme weight feedback events by direction",
		}, []string{"direction"}),
		decayedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arcana_persona_decayed_rows_total",
			Help: "Persona weight rows written back by decay",
		}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arcana_generation_latency_seconds",
			Help:    "Latency of generation/embedding boundary calls",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		registry: registry,
	}

	registry.MustRegister(
		c.readingsStarted,
		c.readingsCompleted,
		c.readingsFailed,
		c.readingDuration,
		c.stepDuration,
		c.cacheOps,
		c.feedbackEvents,
		c.decayedRows,
		c.generationLatency,
	)
	return c
}

func (c *promCollector) Registry() *prometheus.Registry { return c.registry }

func (c *promCollector) ReadingStarted() { c.readingsStarted.Inc() }

func (c *promCollector) ReadingCompleted(duration time.Duration) {
	c.readingsCompleted.Inc()
	c.readingDuration.Observe(duration.Seconds())
}

func (c *promCollector) ReadingFailed(code string) {
	c.readingsFailed.WithLabelValues(code).Inc()
}

func (c *promCollector) StepDuration(step string, duration time.Duration) {
	c.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func (c *promCollector) CacheHit(namespace string) {
	c.cacheOps.WithLabelValues(namespace, "hit").Inc()
}

func (c *promCollector) CacheMiss(namespace string) {
	c.cacheOps.WithLabelValues(namespace, "miss").Inc()
}

func (c *promCollector) FeedbackEvent(direction string) {
	c.feedbackEvents.WithLabelValues(direction).Inc()
}

func (c *promCollector) DecayedRows(count int) {
	c.decayedRows.Add(float64(count))
}

func (c *promCollector) GenerationLatency(operation string, duration time.Duration) {
	c.generationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}
