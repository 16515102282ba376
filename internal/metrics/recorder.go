package metrics

import "time"

// Recorder defines observability hooks for orchestrated operations.
// Implementations may forward to Prometheus. NoopRecorder is the default.
type Recorder interface {
	ObserveBuildDuration(mode string, d time.Duration)
	IncBuildOutcome(mode, outcome string)
	IncPolls(core string)
	SetCoreStatus(core string, documentCount int64, indexVersion float64)
	IncVersionBump(core string, changed bool)
	IncSwap(swapped bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, string) {}
func (NoopRecorder) IncPolls(string) {}
func (NoopRecorder) SetCoreStatus(string, int64, float64) {}
func (NoopRecorder) IncVersionBump(string, bool) {}
func (NoopRecorder) IncSwap(bool) {}
