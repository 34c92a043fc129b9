package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tablepose/internal/units"
)

// RenderTrajectoryHTML writes a self-contained go-echarts page with one
// scatter series per entity. Each point carries its frame sequence and
// heading (degrees) for the tooltip.
func RenderTrajectoryHTML(w io.Writer, table Table, trajectories []Trajectory, o Options) error {
	trs, err := checkInput(table, trajectories)
	if err != nil {
		return err
	}

	points := 0
	for _, tr := range trs {
		points += len(tr.Samples)
	}
	subtitle := o.Subtitle
	if subtitle == "" {
		subtitle = fmt.Sprintf("entities=%d points=%d", len(trs), points)
	}

	unit := table.unitLabel()
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.title(), Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: o.title(), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: table.Width, Name: "X (" + unit + ")", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: table.Height, Name: "Y (" + unit + ")", NameLocation: "middle", NameGap: 30}),
	)

	for _, tr := range trs {
		data := make([]opts.ScatterData, 0, len(tr.Samples))
		for _, s := range tr.Samples {
			data = append(data, opts.ScatterData{
				Name:  fmt.Sprintf("%s #%d", tr.EntityID, s.Seq),
				Value: []interface{}{s.X, s.Y, s.Seq, units.RadToDeg(s.Angle)},
			})
		}
		scatter.AddSeries(tr.EntityID, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
