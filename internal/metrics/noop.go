package metrics

import "time"

type noop struct{}

// Noop returns a Collector that records nothing.
func Noop() Collector { return noop{} }

func (noop) ReadingStarted()                         {}
func (noop) ReadingCompleted(time.Duration)          {}
func (noop) ReadingFailed(string)                    {}
func (noop) StepDuration(string, time.Duration)      {}
func (noop) CacheHit(string)                         {}
func (noop) CacheMiss(string)                        {}
func (noop) FeedbackEvent(string)                    {}
func (noop) DecayedRows(int)                         {}
func (noop) GenerationLatency(string, time.Duration) {}
