// Package report renders recorded entity trajectories as static PNG plots
// and interactive HTML charts.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no trajectory data")

// Table is the physical table extent, in the same units as the samples.
type Table struct {
	Width  float64
	Height float64
	Units  string
}

func (t Table) valid() bool {
	return t.Width > 0 && t.Height > 0 && !math.IsInf(t.Width, 0) && !math.IsInf(t.Height, 0)
}

func (t Table) unitLabel() string {
	if t.Units == "" {
		return "m"
	}
	return t.Units
}

// Sample is one recorded pose.
type Sample struct {
	Seq   uint64
	X, Y  float64
	Angle float64
}

// Trajectory is the ordered pose history of a single entity.
type Trajectory struct {
	EntityID string
	Samples  []Sample
}

// Options tune both renderers. Zero values pick defaults.
type Options struct {
	Title    string
	Subtitle string
}

func (o Options) title() string {
	if o.Title == "" {
		return "Table trajectories"
	}
	return o.Title
}

// sortedTrajectories drops empty trajectories and orders the rest with the
// robot first, then by entity ID.
func sortedTrajectories(in []Trajectory) []Trajectory {
	out := make([]Trajectory, 0, len(in))
	for _, tr := range in {
		if len(tr.Samples) > 0 {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].EntityID == "robot") != (out[j].EntityID == "robot") {
			return out[i].EntityID == "robot"
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

func checkInput(table Table, trajectories []Trajectory) ([]Trajectory, error) {
	if !table.valid() {
		return nil, fmt.Errorf("table size %gx%g must be positive", table.Width, table.Height)
	}
	trs := sortedTrajectories(trajectories)
	if len(trs) == 0 {
		return nil, ErrNoData
	}
	return trs, nil
}

// Render writes the trajectories in the named format ("png" or "html").
func Render(w io.Writer, format string, table Table, trajectories []Trajectory, o Options) error {
	switch format {
	case "png":
		return RenderTrajectoryPNG(w, table, trajectories, o)
	case "html":
		return RenderTrajectoryHTML(w, table, trajectories, o)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}
