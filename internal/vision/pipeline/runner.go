package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/tablepose/internal/vision/l1markers"
)

// DefaultStatsEvery is how many frames pass between diag stats lines.
const DefaultStatsEvery = 300

// Runner pulls frames from a Source and drives a Processor until the source
// is exhausted or the context is cancelled.
type Runner struct {
	Source    l1markers.Source
	Processor *Processor

	// StatsEvery overrides DefaultStatsEvery; negative disables periodic
	// stats.
	StatsEvery int

	// OnOutcome, if set, is called after every processed frame.
	OnOutcome func(FrameOutcome)
}

// Run processes frames until io.EOF (returns nil) or ctx is done (returns
// ctx.Err()). Malformed frames are logged and skipped; any other read error
// stops the run.
func (r *Runner) Run(ctx context.Context) error {
	if r.Source == nil || r.Processor == nil {
		return errors.New("runner needs a source and a processor")
	}
	every := r.StatsEvery
	if every == 0 {
		every = DefaultStatsEvery
	}
	stats := r.Processor.Stats()

	defer func() {
		diagf("run finished: %s", stats.Snapshot())
	}()

	for {
		frame, err := r.Source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, l1markers.ErrMalformedFrame):
				stats.InputErrors.Add(1)
				opsf("skipping input: %v", err)
				continue
			default:
				return fmt.Errorf("read frame: %w", err)
			}
		}

		outcome := r.Processor.ProcessFrame(frame)
		if r.OnOutcome != nil {
			r.OnOutcome(outcome)
		}

		if every > 0 && stats.Frames.Load()%uint64(every) == 0 {
			diagf("stats: %s", stats.Snapshot())
		}
	}
}
