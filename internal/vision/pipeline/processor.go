package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/tablepose/internal/vision"
	"github.com/banshee-data/tablepose/internal/vision/l1markers"
	"github.com/banshee-data/tablepose/internal/vision/l2corners"
	"github.com/banshee-data/tablepose/internal/vision/l3geometry"
	"github.com/banshee-data/tablepose/internal/vision/l4pose"
	"github.com/banshee-data/tablepose/internal/vision/l5entities"
)

// DefaultOutputHeightPx is the rectified image height used when Config
// leaves it unset.
const DefaultOutputHeightPx = 600

// Config holds everything a Processor needs.
type Config struct {
	// CornerIDs are the four table-corner marker IDs. Their order does not
	// matter; corners are ordered geometrically each frame.
	CornerIDs []int

	// TableWidth and TableHeight are the physical size of the rectangle
	// spanned by the corner marker centres.
	TableWidth  float64
	TableHeight float64

	// OutputHeightPx sets the rectified output height; the width follows
	// the table aspect ratio.
	OutputHeightPx int

	// Output, when non-zero, sets the rectified output size explicitly and
	// overrides OutputHeightPx. The two axes then scale independently.
	Output l3geometry.OutputSize

	// Entities configures the robot and stations. ReservedIDs is filled in
	// from CornerIDs.
	Entities l5entities.Config
}

// FrameStatus is the pipeline verdict for one frame.
type FrameStatus int

const (
	// StatusDispatched means sinks were invoked.
	StatusDispatched FrameStatus = iota
	// StatusNoMarkers means the homography was valid but no non-corner
	// marker was observed.
	StatusNoMarkers
	// StatusIncomplete means fewer than four corners have ever been seen.
	StatusIncomplete
	// StatusDegenerate means the known corners cannot define a homography.
	StatusDegenerate
)

func (s FrameStatus) String() string {
	switch s {
	case StatusDispatched:
		return "dispatched"
	case StatusNoMarkers:
		return "no_markers"
	case StatusIncomplete:
		return "incomplete"
	case StatusDegenerate:
		return "degenerate"
	default:
		return fmt.Sprintf("FrameStatus(%d)", int(s))
	}
}

// FrameOutcome reports what happened to one frame.
type FrameOutcome struct {
	Seq          uint64
	Status       FrameStatus
	FreshCorners int

	// Result is set when Status is StatusDispatched.
	Result *l5entities.Result

	// Err explains a skipped frame (incomplete or degenerate).
	Err error
	// MarkerErrors holds per-marker projection failures.
	MarkerErrors []error
	// SinkErrors holds failures returned by sinks.
	SinkErrors []error
}

// Processor turns detector frames into entity poses. It is not safe for
// concurrent use.
type Processor struct {
	tracker    *l2corners.Tracker
	registry   *l5entities.Registry
	width      float64
	height     float64
	output     l3geometry.OutputSize
	dispatcher *Dispatcher
	stats      *Stats

	homography *l3geometry.Homography
	calibrated bool
}

// NewProcessor validates cfg and builds the corner tracker and entity
// registry. Errors wrap vision.ErrConfiguration. A nil dispatcher is
// replaced by an empty one.
func NewProcessor(cfg Config, d *Dispatcher) (*Processor, error) {
	tracker, err := l2corners.NewTracker(cfg.CornerIDs)
	if err != nil {
		return nil, err
	}

	ents := cfg.Entities
	ents.ReservedIDs = append(append([]int(nil), ents.ReservedIDs...), cfg.CornerIDs...)
	registry, err := l5entities.NewRegistry(ents)
	if err != nil {
		return nil, err
	}

	output := cfg.Output
	if output == (l3geometry.OutputSize{}) {
		heightPx := cfg.OutputHeightPx
		if heightPx == 0 {
			heightPx = DefaultOutputHeightPx
		}
		output = l3geometry.OutputSizeForTable(cfg.TableWidth, cfg.TableHeight, heightPx)
	}
	if !(cfg.TableWidth > 0) || !(cfg.TableHeight > 0) || output.Width <= 0 || output.Height <= 0 {
		return nil, fmt.Errorf("%w: table %gx%g with output %dx%d px gives no output rectangle",
			vision.ErrConfiguration, cfg.TableWidth, cfg.TableHeight, output.Width, output.Height)
	}

	if d == nil {
		d = NewDispatcher()
	}
	diagf("corner markers %v, table %gx%g, output %dx%d px",
		tracker.IDs(), cfg.TableWidth, cfg.TableHeight, output.Width, output.Height)
	stats := &Stats{}
	d.stats = stats

	return &Processor{
		tracker:    tracker,
		registry:   registry,
		width:      cfg.TableWidth,
		height:     cfg.TableHeight,
		output:     output,
		dispatcher: d,
		stats:      stats,
	}, nil
}

// Stats returns the live counters.
func (p *Processor) Stats() *Stats { return p.stats }

// Registry returns the entity registry.
func (p *Processor) Registry() *l5entities.Registry { return p.registry }

// Output returns the rectified output size.
func (p *Processor) Output() l3geometry.OutputSize { return p.output }

// Homography returns the homography of the most recent frame that had one,
// or nil.
func (p *Processor) Homography() *l3geometry.Homography { return p.homography }

// ProcessFrame runs one frame through the pipeline and dispatches the result
// if any non-corner marker was observed.
func (p *Processor) ProcessFrame(f l1markers.Frame) FrameOutcome {
	p.stats.Frames.Add(1)
	out := FrameOutcome{Seq: f.Seq}

	out.FreshCorners = p.tracker.Observe(f.Markers)

	quad, err := p.tracker.Quadrilateral()
	if err != nil {
		p.stats.SkippedIncomplete.Add(1)
		tracef("frame %d: skipped with %d/4 corners known: %v", f.Seq, p.tracker.KnownCount(), err)
		out.Status = StatusIncomplete
		out.Err = err
		return out
	}

	h, err := l3geometry.ComputeHomography(l3geometry.OrderCorners(quad), p.width, p.height, p.output)
	if err != nil {
		p.stats.SkippedDegenerate.Add(1)
		if p.calibrated {
			diagf("frame %d: calibration lost: %v (corners %s)", f.Seq, err, cornerSummary(p.tracker.Snapshot()))
			p.calibrated = false
		}
		out.Status = StatusDegenerate
		out.Err = err
		return out
	}
	if !p.calibrated {
		diagf("frame %d: calibrated, output %dx%d px", f.Seq, p.output.Width, p.output.Height)
		p.calibrated = true
	}
	p.homography = h

	res := l5entities.NewResult(f.Seq, f.Timestamp)
	observed := false
	for _, m := range f.Markers {
		if p.tracker.IsCorner(m.ID) {
			continue
		}
		observed = true

		ent := p.registry.Classify(m.ID)
		raw, err := l4pose.ResolveMarker(m.Corners, h)
		if err != nil {
			p.stats.MarkerFailures.Add(1)
			err = fmt.Errorf("marker %d: %w", m.ID, err)
			tracef("frame %d: %v", f.Seq, err)
			out.MarkerErrors = append(out.MarkerErrors, err)
			continue
		}
		final := raw
		if ent.Kind != l5entities.KindUnknown {
			final = l4pose.ApplyOffset(raw, ent.Offset)
		}
		res.Add(l5entities.NewResolvedPose(ent, raw, final))
		tracef("frame %d: %s at (%.4f, %.4f) angle %.3f", f.Seq, ent.Key, final.X, final.Y, final.Angle)
	}

	if !observed {
		p.stats.NoMarkers.Add(1)
		out.Status = StatusNoMarkers
		return out
	}

	p.stats.Dispatches.Add(1)
	out.Status = StatusDispatched
	out.Result = res
	out.SinkErrors = p.dispatcher.Dispatch(res)
	return out
}

// cornerSummary formats tracker state as "id:state@(x,y)" per corner.
func cornerSummary(snaps [4]l2corners.Snapshot) string {
	parts := make([]string, 0, len(snaps))
	for _, s := range snaps {
		parts = append(parts, fmt.Sprintf("%d:%s@(%.1f,%.1f)", s.ID, s.State, s.Center.X, s.Center.Y))
	}
	return strings.Join(parts, " ")
}

// IsCalibrationError reports whether err is a per-frame calibration failure.
func IsCalibrationError(err error) bool {
	return errors.Is(err, vision.ErrIncompleteCalibration) || errors.Is(err, vision.ErrDegenerateGeometry)
}
