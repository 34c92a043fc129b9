package l5entities

import (
	"sort"
	"time"

	"github.com/banshee-data/tablepose/internal/vision/l4pose"
)

// ResolvedPose is the final pose of one observed non-corner marker, after
// its entity offset has been applied.
type ResolvedPose struct {
	EntityID string
	Kind     Kind
	MarkerID int

	X, Y  float64 // physical units, origin bottom-left
	Angle float64 // radians in (-pi, pi]

	// PixelX, PixelY locate the marker centre in the rectified output
	// image. They are taken before the offset is applied.
	PixelX, PixelY float64
}

// NewResolvedPose combines an entity with its marker pose and offset-applied
// pose.
func NewResolvedPose(e Entity, raw, final l4pose.MarkerPose) ResolvedPose {
	return ResolvedPose{
		EntityID: e.Key,
		Kind:     e.Kind,
		MarkerID: e.MarkerID,
		X:        final.X,
		Y:        final.Y,
		Angle:    final.Angle,
		PixelX:   raw.PixelX,
		PixelY:   raw.PixelY,
	}
}

// Result is everything observed in one frame. Robot is nil when the robot
// marker was not seen; Markers holds stations and unknown markers by key.
type Result struct {
	Seq       uint64
	Timestamp time.Time
	Robot     *ResolvedPose
	Markers   map[string]ResolvedPose
}

// NewResult returns an empty result for one frame.
func NewResult(seq uint64, ts time.Time) *Result {
	return &Result{Seq: seq, Timestamp: ts, Markers: make(map[string]ResolvedPose)}
}

// Add files p under the robot slot or under its key.
func (r *Result) Add(p ResolvedPose) {
	if p.Kind == KindRobot {
		pose := p
		r.Robot = &pose
		return
	}
	r.Markers[p.EntityID] = p
}

// Len returns the number of poses in the result.
func (r *Result) Len() int {
	n := len(r.Markers)
	if r.Robot != nil {
		n++
	}
	return n
}

// Poses returns every pose, robot first, then markers sorted by key.
func (r *Result) Poses() []ResolvedPose {
	out := make([]ResolvedPose, 0, r.Len())
	if r.Robot != nil {
		out = append(out, *r.Robot)
	}
	keys := make([]string, 0, len(r.Markers))
	for k := range r.Markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, r.Markers[k])
	}
	return out
}
