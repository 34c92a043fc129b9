package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotSize is the edge of the longer side of the PNG.
const PlotSize = 8 * vg.Inch

// RenderTrajectoryPNG draws the table outline and one line per entity.
// Each trajectory's first sample is marked with a point.
func RenderTrajectoryPNG(w io.Writer, table Table, trajectories []Trajectory, o Options) error {
	trs, err := checkInput(table, trajectories)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = o.title()
	if o.Subtitle != "" {
		p.Title.Text += "\n" + o.Subtitle
	}
	p.X.Label.Text = fmt.Sprintf("X (%s)", table.unitLabel())
	p.Y.Label.Text = fmt.Sprintf("Y (%s)", table.unitLabel())
	p.Add(plotter.NewGrid())

	outline, err := plotter.NewLine(plotter.XYs{
		{X: 0, Y: 0}, {X: table.Width, Y: 0}, {X: table.Width, Y: table.Height}, {X: 0, Y: table.Height}, {X: 0, Y: 0},
	})
	if err != nil {
		return fmt.Errorf("table outline: %w", err)
	}
	outline.Color = color.Gray{Y: 96}
	outline.Width = vg.Points(1.5)
	outline.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(outline)

	for i, tr := range trs {
		pts := make(plotter.XYs, 0, len(tr.Samples))
		for _, s := range tr.Samples {
			pts = append(pts, plotter.XY{X: s.X, Y: s.Y})
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("entity %s: %w", tr.EntityID, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)

		start, err := plotter.NewScatter(pts[:1])
		if err != nil {
			return fmt.Errorf("entity %s: %w", tr.EntityID, err)
		}
		start.Color = plotutil.Color(i)
		start.Radius = vg.Points(3)

		p.Add(line, start)
		p.Legend.Add(tr.EntityID, line)
	}

	pad := 0.05 * max(table.Width, table.Height)
	p.X.Min, p.X.Max = -pad, table.Width+pad
	p.Y.Min, p.Y.Max = -pad, table.Height+pad
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	width, height := PlotSize, PlotSize
	if table.Width > table.Height {
		height = vg.Length(float64(PlotSize) * table.Height / table.Width)
	} else if table.Height > table.Width {
		width = vg.Length(float64(PlotSize) * table.Width / table.Height)
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
