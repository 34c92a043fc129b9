package l2corners

import (
	"fmt"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/tablepose/internal/vision"
	"github.com/banshee-data/tablepose/internal/vision/l1markers"
)

// CornerState is the lifecycle state of one corner marker.
type CornerState int

const (
	// CornerUnknown means the marker has never been observed.
	CornerUnknown CornerState = iota
	// CornerKnown means the marker has a last observed centre.
	CornerKnown
)

func (s CornerState) String() string {
	switch s {
	case CornerKnown:
		return "known"
	default:
		return "unknown"
	}
}

type corner struct {
	id     int
	state  CornerState
	center r2.Point
	// frames is the number of frames this corner has been observed in.
	frames uint64
}

// Tracker keeps the CornerSet for one table.
type Tracker struct {
	corners [4]corner
	index   map[int]int
}

// NewTracker creates a tracker for the four corner marker IDs. IDs are
// conventionally given as top-left, top-right, bottom-right, bottom-left,
// but geometry is re-ordered from the observed positions before use.
// It returns an error wrapping vision.ErrConfiguration unless the IDs are
// exactly 4 distinct values.
func NewTracker(ids []int) (*Tracker, error) {
	if len(ids) != 4 {
		return nil, fmt.Errorf("%w: need exactly 4 corner marker IDs, got %d", vision.ErrConfiguration, len(ids))
	}
	t := &Tracker{index: make(map[int]int, 4)}
	for i, id := range ids {
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("%w: corner marker ID %d is repeated in %v", vision.ErrConfiguration, id, ids)
		}
		t.index[id] = i
		t.corners[i] = corner{id: id}
	}
	return t, nil
}

// IDs returns the corner marker IDs in configured order.
func (t *Tracker) IDs() [4]int {
	var ids [4]int
	for i, c := range t.corners {
		ids[i] = c.id
	}
	return ids
}

// IsCorner reports whether id is one of the four corner markers.
func (t *Tracker) IsCorner(id int) bool {
	_, ok := t.index[id]
	return ok
}

// Observe updates the CornerSet from one frame's detections and returns how
// many corners were freshly observed. Non-corner markers are ignored. If a
// corner ID appears more than once in a frame the last detection wins.
func (t *Tracker) Observe(markers []l1markers.MarkerObservation) int {
	var fresh [4]bool
	for _, m := range markers {
		i, ok := t.index[m.ID]
		if !ok {
			continue
		}
		c := &t.corners[i]
		c.center = m.Center()
		c.state = CornerKnown
		if !fresh[i] {
			c.frames++
		}
		fresh[i] = true
	}
	n := 0
	for _, f := range fresh {
		if f {
			n++
		}
	}
	return n
}

// KnownCount returns how many corners have been observed at least once.
func (t *Tracker) KnownCount() int {
	n := 0
	for _, c := range t.corners {
		if c.state == CornerKnown {
			n++
		}
	}
	return n
}

// Quadrilateral returns the four corner centres in configured ID order, or
// an error wrapping vision.ErrIncompleteCalibration while any corner is
// still Unknown. The returned centres may be stale.
func (t *Tracker) Quadrilateral() ([4]r2.Point, error) {
	var quad [4]r2.Point
	var missing []int
	for i, c := range t.corners {
		if c.state != CornerKnown {
			missing = append(missing, c.id)
			continue
		}
		quad[i] = c.center
	}
	if len(missing) > 0 {
		return [4]r2.Point{}, fmt.Errorf("%w: corner markers %v not yet observed", vision.ErrIncompleteCalibration, missing)
	}
	return quad, nil
}

// Snapshot is a read-only copy of one corner's state for diagnostics.
type Snapshot struct {
	ID     int
	State  CornerState
	Center r2.Point
	Frames uint64
}

// Snapshot returns the state of every corner in configured order.
func (t *Tracker) Snapshot() [4]Snapshot {
	var out [4]Snapshot
	for i, c := range t.corners {
		out[i] = Snapshot{ID: c.id, State: c.state, Center: c.center, Frames: c.frames}
	}
	return out
}
