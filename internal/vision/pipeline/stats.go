package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Stats counts frame outcomes. Counters are atomic so a monitoring goroutine
// may read them while the pipeline runs.
type Stats struct {
	Frames            atomic.Uint64
	InputErrors       atomic.Uint64
	SkippedIncomplete atomic.Uint64
	SkippedDegenerate atomic.Uint64
	NoMarkers         atomic.Uint64
	MarkerFailures    atomic.Uint64
	Dispatches        atomic.Uint64
	SinkErrors        atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Frames            uint64 `json:"frames"`
	InputErrors       uint64 `json:"input_errors"`
	SkippedIncomplete uint64 `json:"skipped_incomplete"`
	SkippedDegenerate uint64 `json:"skipped_degenerate"`
	NoMarkers         uint64 `json:"no_markers"`
	MarkerFailures    uint64 `json:"marker_failures"`
	Dispatches        uint64 `json:"dispatches"`
	SinkErrors        uint64 `json:"sink_errors"`
}

// Snapshot reads every counter.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Frames:            s.Frames.Load(),
		InputErrors:       s.InputErrors.Load(),
		SkippedIncomplete: s.SkippedIncomplete.Load(),
		SkippedDegenerate: s.SkippedDegenerate.Load(),
		NoMarkers:         s.NoMarkers.Load(),
		MarkerFailures:    s.MarkerFailures.Load(),
		Dispatches:        s.Dispatches.Load(),
		SinkErrors:        s.SinkErrors.Load(),
	}
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("frames=%d dispatched=%d incomplete=%d degenerate=%d no_markers=%d marker_failures=%d sink_errors=%d input_errors=%d",
		s.Frames, s.Dispatches, s.SkippedIncomplete, s.SkippedDegenerate,
		s.NoMarkers, s.MarkerFailures, s.SinkErrors, s.InputErrors)
}
